// Package errors provides structured error types for forge.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind classifies an error for caller policy and the machine-readable payload.
type Kind string

const (
	// KindValidation marks malformed manifests or config. Never retried;
	// always surfaced with the offending field.
	KindValidation Kind = "validation"

	// KindNetwork marks transient transport failures. Retryable by caller policy.
	KindNetwork Kind = "network"

	// KindNotFound marks a missing package, version, or registry. The
	// orchestrator treats this as a control-flow signal (try next source).
	KindNotFound Kind = "not_found"

	// KindChecksumMismatch marks content whose SHA-256 does not match the
	// manifest's declared checksum. Always aborts the install.
	KindChecksumMismatch Kind = "checksum_mismatch"

	// KindDependencyResolution marks a declared dependency that cannot be
	// resolved anywhere. Aborts the whole install transactionally.
	KindDependencyResolution Kind = "dependency_resolution"

	// KindIO marks local filesystem failures.
	KindIO Kind = "io"
)

// Error codes for forge operations.
const (
	// Config errors
	CodeConfigMissingField = "CONFIG_001" // Missing required field
	CodeConfigInvalidValue = "CONFIG_002" // Invalid value

	// Manifest errors
	CodeManifestParse   = "MANIFEST_001" // JSON parse error
	CodeManifestInvalid = "MANIFEST_002" // Schema/field validation failed

	// Registry errors
	CodeRegistryNotFound    = "REG_001" // Registry not configured
	CodeRegistryUnsupported = "REG_002" // Registry kind not supported

	// Network errors
	CodeNetworkRequest = "NET_001" // Request failed
	CodeNetworkStatus  = "NET_002" // Unexpected HTTP status

	// Resolution errors
	CodeItemNotFound      = "RESOLVE_001" // Package not found in any tier
	CodeVersionNotFound   = "RESOLVE_002" // No version satisfies constraint
	CodeDependencyMissing = "RESOLVE_003" // Declared dependency unresolvable

	// Install errors
	CodeChecksumMismatch = "INSTALL_001" // SHA-256 verification failed
	CodeInstallAborted   = "INSTALL_002" // Install rolled back

	// IO errors
	CodeIORead  = "IO_001" // Read error
	CodeIOWrite = "IO_002" // Write error
)

// ForgeError is the structured error type for forge operations.
type ForgeError struct {
	Code    string         `json:"code"`              // Error code (e.g., "INSTALL_001")
	Kind    Kind           `json:"kind"`              // Error classification
	Message string         `json:"message"`           // Human-readable message
	Context map[string]any `json:"context,omitempty"` // Offending package, field, etc.
	Cause   error          `json:"-"`                 // Wrapped error (not serialized)
}

// Error implements the error interface.
func (e *ForgeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *ForgeError) Unwrap() error {
	return e.Cause
}

// WithContext adds a context value to the error.
func (e *ForgeError) WithContext(key string, value any) *ForgeError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// WithCause wraps an underlying error.
func (e *ForgeError) WithCause(err error) *ForgeError {
	e.Cause = err
	return e
}

// MarshalJSON implements json.Marshaler with the cause error message inlined.
func (e *ForgeError) MarshalJSON() ([]byte, error) {
	type alias ForgeError
	aux := struct {
		*alias
		CauseMsg string `json:"cause,omitempty"`
	}{
		alias: (*alias)(e),
	}
	if e.Cause != nil {
		aux.CauseMsg = e.Cause.Error()
	}
	return json.Marshal(aux)
}

// New creates a new ForgeError.
func New(code string, kind Kind, message string) *ForgeError {
	return &ForgeError{
		Code:    code,
		Kind:    kind,
		Message: message,
	}
}

// Newf creates a new ForgeError with a formatted message.
func Newf(code string, kind Kind, format string, args ...any) *ForgeError {
	return &ForgeError{
		Code:    code,
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an error with a ForgeError.
func Wrap(code string, kind Kind, message string, err error) *ForgeError {
	return &ForgeError{
		Code:    code,
		Kind:    kind,
		Message: message,
		Cause:   err,
	}
}

// --- Config errors ---

// ConfigMissingField creates an error for a missing config field.
func ConfigMissingField(field string) *ForgeError {
	return Newf(CodeConfigMissingField, KindValidation, "missing required config field: %s", field).
		WithContext("field", field)
}

// ConfigInvalidValue creates an error for an invalid config value.
func ConfigInvalidValue(field string, reason string) *ForgeError {
	return Newf(CodeConfigInvalidValue, KindValidation, "invalid config value for %s: %s", field, reason).
		WithContext("field", field).
		WithContext("reason", reason)
}

// --- Manifest errors ---

// ManifestParse creates an error for a manifest that is not valid JSON.
func ManifestParse(source string, err error) *ForgeError {
	return Wrap(CodeManifestParse, KindValidation, "failed to parse manifest", err).
		WithContext("source", source)
}

// ManifestInvalid creates an error for a manifest that failed validation.
func ManifestInvalid(source string, err error) *ForgeError {
	return Wrap(CodeManifestInvalid, KindValidation, "manifest validation failed", err).
		WithContext("source", source)
}

// --- Registry errors ---

// RegistryNotFound creates an error for an unconfigured registry.
func RegistryNotFound(name string) *ForgeError {
	return Newf(CodeRegistryNotFound, KindNotFound, "registry not configured: %s", name).
		WithContext("registry", name)
}

// RegistryUnsupported creates an error for an unsupported registry kind.
func RegistryUnsupported(name, kind string) *ForgeError {
	return Newf(CodeRegistryUnsupported, KindValidation, "registry %s has unsupported kind %q", name, kind).
		WithContext("registry", name).
		WithContext("kind", kind)
}

// --- Network errors ---

// NetworkRequest creates an error for a failed request.
func NetworkRequest(url string, err error) *ForgeError {
	return Wrap(CodeNetworkRequest, KindNetwork, "request failed", err).
		WithContext("url", url)
}

// NetworkStatus creates an error for an unexpected HTTP status.
func NetworkStatus(url string, status int) *ForgeError {
	return Newf(CodeNetworkStatus, KindNetwork, "unexpected status %d fetching %s", status, url).
		WithContext("url", url).
		WithContext("status", status)
}

// --- Resolution errors ---

// ItemNotFound creates an error for a package missing from every tier.
func ItemNotFound(name string) *ForgeError {
	return Newf(CodeItemNotFound, KindNotFound, "package not found: %s", name).
		WithContext("name", name)
}

// VersionNotFound creates an error for an unsatisfiable version constraint.
func VersionNotFound(name, constraint string) *ForgeError {
	return Newf(CodeVersionNotFound, KindNotFound, "no version of %s satisfies %q", name, constraint).
		WithContext("name", name).
		WithContext("constraint", constraint)
}

// DependencyMissing creates an error for an unresolvable declared dependency.
func DependencyMissing(item, dependency string) *ForgeError {
	return Newf(CodeDependencyMissing, KindDependencyResolution, "dependency %q of %s cannot be resolved", dependency, item).
		WithContext("item", item).
		WithContext("dependency", dependency)
}

// --- Install errors ---

// ChecksumMismatch creates an error for failed SHA-256 verification.
func ChecksumMismatch(name, version, want, got string) *ForgeError {
	return Newf(CodeChecksumMismatch, KindChecksumMismatch, "checksum mismatch for %s@%s", name, version).
		WithContext("name", name).
		WithContext("version", version).
		WithContext("expected", want).
		WithContext("actual", got)
}

// InstallAborted creates an error for a rolled-back install.
func InstallAborted(name string, err error) *ForgeError {
	return Wrap(CodeInstallAborted, KindDependencyResolution, "install aborted and rolled back", err).
		WithContext("name", name)
}

// --- IO errors ---

// IORead creates an error for read failures.
func IORead(path string, err error) *ForgeError {
	return Wrap(CodeIORead, KindIO, "failed to read file", err).
		WithContext("path", path)
}

// IOWrite creates an error for write failures.
func IOWrite(path string, err error) *ForgeError {
	return Wrap(CodeIOWrite, KindIO, "failed to write file", err).
		WithContext("path", path)
}

// HasCode checks if an error is a ForgeError with the given code.
// It handles wrapped errors by unwrapping to find a ForgeError.
func HasCode(err error, code string) bool {
	var ferr *ForgeError
	if errors.As(err, &ferr) {
		return ferr.Code == code
	}
	return false
}

// CodeOf returns the error code if err is a ForgeError, empty string otherwise.
func CodeOf(err error) string {
	var ferr *ForgeError
	if errors.As(err, &ferr) {
		return ferr.Code
	}
	return ""
}

// KindOf returns the error kind if err is a ForgeError, empty string otherwise.
func KindOf(err error) Kind {
	var ferr *ForgeError
	if errors.As(err, &ferr) {
		return ferr.Kind
	}
	return ""
}

// IsNotFound reports whether err is a not-found error. The orchestrator uses
// this to continue to the next tier or registry.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// IsNetwork reports whether err is a transient network error.
func IsNetwork(err error) bool {
	return KindOf(err) == KindNetwork
}

// Payload renders err as the machine-readable {kind, message, context} JSON
// document printed by CLI commands on request.
func Payload(err error) []byte {
	var ferr *ForgeError
	if !errors.As(err, &ferr) {
		ferr = &ForgeError{Kind: "internal", Message: err.Error()}
	}
	out := struct {
		Kind    Kind           `json:"kind"`
		Message string         `json:"message"`
		Context map[string]any `json:"context,omitempty"`
	}{
		Kind:    ferr.Kind,
		Message: ferr.Message,
		Context: ferr.Context,
	}
	data, merr := json.Marshal(out)
	if merr != nil {
		return []byte(`{"kind":"internal","message":"error encoding failure"}`)
	}
	return data
}
