package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

func TestForgeError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *ForgeError
		wantStr string
	}{
		{
			name: "simple error",
			err: &ForgeError{
				Code:    "TEST_001",
				Message: "test error",
			},
			wantStr: "[TEST_001] test error",
		},
		{
			name: "error with cause",
			err: &ForgeError{
				Code:    "TEST_002",
				Message: "wrapped error",
				Cause:   errors.New("underlying"),
			},
			wantStr: "[TEST_002] wrapped error: underlying",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantStr {
				t.Errorf("Error() = %q, want %q", got, tt.wantStr)
			}
		})
	}
}

func TestForgeError_Unwrap(t *testing.T) {
	underlying := errors.New("underlying error")
	err := &ForgeError{
		Code:    "TEST_001",
		Message: "test",
		Cause:   underlying,
	}

	if got := err.Unwrap(); got != underlying {
		t.Errorf("Unwrap() = %v, want %v", got, underlying)
	}

	if !errors.Is(err, underlying) {
		t.Error("errors.Is should find the underlying error")
	}
}

func TestForgeError_WithContext(t *testing.T) {
	err := New("TEST_001", KindValidation, "test").
		WithContext("key1", "value1").
		WithContext("key2", 42)

	if err.Context["key1"] != "value1" {
		t.Errorf("Context[key1] = %v, want value1", err.Context["key1"])
	}
	if err.Context["key2"] != 42 {
		t.Errorf("Context[key2] = %v, want 42", err.Context["key2"])
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *ForgeError
		wantCode string
		wantKind Kind
	}{
		{"item not found", ItemNotFound("@acme/pkg"), CodeItemNotFound, KindNotFound},
		{"version not found", VersionNotFound("@acme/pkg", "^2.0.0"), CodeVersionNotFound, KindNotFound},
		{"registry not found", RegistryNotFound("acme"), CodeRegistryNotFound, KindNotFound},
		{"network request", NetworkRequest("https://example.com", errors.New("refused")), CodeNetworkRequest, KindNetwork},
		{"network status", NetworkStatus("https://example.com", 503), CodeNetworkStatus, KindNetwork},
		{"checksum mismatch", ChecksumMismatch("@acme/pkg", "1.0.0", "sha256:aa", "sha256:bb"), CodeChecksumMismatch, KindChecksumMismatch},
		{"dependency missing", DependencyMissing("deploy-agent", "git-helper"), CodeDependencyMissing, KindDependencyResolution},
		{"install aborted", InstallAborted("@acme/pkg", errors.New("boom")), CodeInstallAborted, KindDependencyResolution},
		{"config missing field", ConfigMissingField("url"), CodeConfigMissingField, KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", tt.err.Code, tt.wantCode)
			}
			if tt.err.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", tt.err.Kind, tt.wantKind)
			}
		})
	}
}

func TestHasCode(t *testing.T) {
	err := ItemNotFound("@acme/pkg")

	if !HasCode(err, CodeItemNotFound) {
		t.Error("HasCode should match the error's own code")
	}
	if HasCode(err, CodeChecksumMismatch) {
		t.Error("HasCode should not match a different code")
	}

	// Wrapped errors should still be found
	wrapped := fmt.Errorf("resolving: %w", err)
	if !HasCode(wrapped, CodeItemNotFound) {
		t.Error("HasCode should unwrap to find the ForgeError")
	}

	if HasCode(errors.New("plain"), CodeItemNotFound) {
		t.Error("HasCode should return false for non-ForgeError")
	}
}

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(ItemNotFound("x")) {
		t.Error("IsNotFound should be true for ItemNotFound")
	}
	if !IsNotFound(fmt.Errorf("tier: %w", VersionNotFound("x", "^1.0.0"))) {
		t.Error("IsNotFound should unwrap")
	}
	if IsNotFound(NetworkStatus("https://example.com", 500)) {
		t.Error("IsNotFound should be false for network errors")
	}
	if IsNotFound(errors.New("plain")) {
		t.Error("IsNotFound should be false for plain errors")
	}
}

func TestPayload(t *testing.T) {
	err := ChecksumMismatch("@acme/pkg", "1.2.0", "sha256:aa", "sha256:bb")
	data := Payload(err)

	var got struct {
		Kind    string         `json:"kind"`
		Message string         `json:"message"`
		Context map[string]any `json:"context"`
	}
	if uerr := json.Unmarshal(data, &got); uerr != nil {
		t.Fatalf("Payload produced invalid JSON: %v", uerr)
	}

	if got.Kind != string(KindChecksumMismatch) {
		t.Errorf("kind = %q, want %q", got.Kind, KindChecksumMismatch)
	}
	if got.Context["name"] != "@acme/pkg" {
		t.Errorf("context.name = %v, want @acme/pkg", got.Context["name"])
	}

	// Plain errors get an internal payload
	data = Payload(errors.New("boom"))
	if uerr := json.Unmarshal(data, &got); uerr != nil {
		t.Fatalf("Payload produced invalid JSON for plain error: %v", uerr)
	}
	if got.Kind != "internal" {
		t.Errorf("kind = %q, want internal", got.Kind)
	}
}

func TestMarshalJSON_IncludesCause(t *testing.T) {
	err := Wrap("TEST_001", KindNetwork, "fetch failed", errors.New("connection reset"))

	data, merr := json.Marshal(err)
	if merr != nil {
		t.Fatalf("Marshal error: %v", merr)
	}

	var got map[string]any
	if uerr := json.Unmarshal(data, &got); uerr != nil {
		t.Fatalf("Unmarshal error: %v", uerr)
	}

	if got["cause"] != "connection reset" {
		t.Errorf("cause = %v, want 'connection reset'", got["cause"])
	}
	if got["code"] != "TEST_001" {
		t.Errorf("code = %v, want TEST_001", got["code"])
	}
}
