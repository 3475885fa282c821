// Package faults defines the error taxonomy of the resolution engine.
//
// Only two kinds abort a resolution pass: missing catalog entries and
// preference-store failures. Credential-check failures degrade to "no
// credentials" at the gate, and invalid override values are substituted with
// configured defaults where they are detected. Classification helpers let the
// coordinator and the HTTP layer branch on kind without string matching.
package faults

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an engine error for propagation decisions.
type Kind int

const (
	// KindUnknown - unclassified errors, treated as fatal for the pass.
	KindUnknown Kind = iota
	// KindConfigNotFound - platform/model missing from the catalog; fatal.
	KindConfigNotFound
	// KindStore - preference store read/write failure; aborts the pass.
	KindStore
	// KindCredential - credential check failure; degrades to false, non-fatal.
	KindCredential
	// KindInvalidOverride - override value outside the allowed set; recovered.
	KindInvalidOverride
)

// ConfigNotFoundError reports a platform or model id absent from the catalog.
type ConfigNotFoundError struct {
	Platform string
	Model    string
	Err      error
}

func (e *ConfigNotFoundError) Error() string {
	switch {
	case e.Model != "" && e.Platform != "":
		return fmt.Sprintf("model %q not found for platform %q", e.Model, e.Platform)
	case e.Platform != "":
		return fmt.Sprintf("platform %q not found in catalog", e.Platform)
	default:
		return "catalog entry not found"
	}
}

func (e *ConfigNotFoundError) Unwrap() error { return e.Err }

// StoreError reports a preference-store read or write failure.
type StoreError struct {
	Op    string // "get", "set", "delete", "keys"
	Scope string
	Key   string
	Err   error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("preference store %s failed for %s/%s: %v", e.Op, e.Scope, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// CredentialCheckError reports a transport/storage failure during a
// credential check. The gate absorbs it; the type exists so tests and
// metrics can assert the classification.
type CredentialCheckError struct {
	Platform string
	Err      error
}

func (e *CredentialCheckError) Error() string {
	return fmt.Sprintf("credential check for %q failed: %v", e.Platform, e.Err)
}

func (e *CredentialCheckError) Unwrap() error { return e.Err }

// InvalidOverrideError reports a stored override value outside the allowed
// set. The resolver substitutes the configured default and logs this.
type InvalidOverrideError struct {
	Field   string
	Value   string
	Allowed []string
}

func (e *InvalidOverrideError) Error() string {
	if len(e.Allowed) == 0 {
		return fmt.Sprintf("invalid override %s=%q", e.Field, e.Value)
	}
	return fmt.Sprintf("invalid override %s=%q (allowed: %s)", e.Field, e.Value, strings.Join(e.Allowed, ", "))
}

// ---- classification ----

// IsConfigNotFound reports whether err wraps a ConfigNotFoundError.
func IsConfigNotFound(err error) bool {
	var target *ConfigNotFoundError
	return errors.As(err, &target)
}

// IsStore reports whether err wraps a StoreError.
func IsStore(err error) bool {
	var target *StoreError
	return errors.As(err, &target)
}

// IsCredentialCheck reports whether err wraps a CredentialCheckError.
func IsCredentialCheck(err error) bool {
	var target *CredentialCheckError
	return errors.As(err, &target)
}

// IsInvalidOverride reports whether err wraps an InvalidOverrideError.
func IsInvalidOverride(err error) bool {
	var target *InvalidOverrideError
	return errors.As(err, &target)
}

// KindOf classifies an error.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case IsConfigNotFound(err):
		return KindConfigNotFound
	case IsStore(err):
		return KindStore
	case IsCredentialCheck(err):
		return KindCredential
	case IsInvalidOverride(err):
		return KindInvalidOverride
	default:
		return KindUnknown
	}
}

// Fatal reports whether err must abort a resolution pass and surface on the
// coordinator's error channel. Everything else is absorbed where detected.
func Fatal(err error) bool {
	if err == nil {
		return false
	}
	switch KindOf(err) {
	case KindCredential, KindInvalidOverride:
		return false
	default:
		return true
	}
}

// FormatForUser converts engine errors to the short, actionable strings the
// extension surfaces show.
func FormatForUser(err error) string {
	if err == nil {
		return ""
	}
	switch KindOf(err) {
	case KindConfigNotFound:
		return "Configuration error, please refresh."
	case KindStore:
		return "Couldn't save or load your preference, please try again."
	case KindCredential:
		return "Couldn't verify credentials for this platform."
	case KindInvalidOverride:
		return "A saved parameter was invalid; the default was used instead."
	default:
		return err.Error()
	}
}

// ---- constructors ----

// NewConfigNotFound builds the fatal catalog-miss error. model may be empty
// when only the platform lookup failed.
func NewConfigNotFound(platform, model string) *ConfigNotFoundError {
	return &ConfigNotFoundError{Platform: platform, Model: model}
}

// NewStoreError wraps a key-value failure with its operation context.
func NewStoreError(op, scope, key string, err error) *StoreError {
	return &StoreError{Op: op, Scope: scope, Key: key, Err: err}
}

// NewCredentialCheckError wraps a gate transport failure.
func NewCredentialCheckError(platform string, err error) *CredentialCheckError {
	return &CredentialCheckError{Platform: platform, Err: err}
}

// NewInvalidOverride reports a rejected override value.
func NewInvalidOverride(field, value string, allowed []string) *InvalidOverrideError {
	return &InvalidOverrideError{Field: field, Value: value, Allowed: allowed}
}
