package sip

import "fmt"

// Kind tags every fallible operation's error with one of the taxonomy
// members from spec.md §7. Callers branch on Kind instead of matching
// error strings.
type Kind int

const (
	// KindInvalidScalar: byte-string is zero or >= the group order.
	KindInvalidScalar Kind = iota + 1
	// KindInvalidPoint: compressed byte-string does not decode to a
	// valid non-identity curve point.
	KindInvalidPoint
	// KindInvalidMetaAddressFormat: wrong prefix, wrong length, or
	// non-hex characters in a text meta-address.
	KindInvalidMetaAddressFormat
	// KindInvalidAnnouncementLayout: insufficient topics, malformed ABI
	// offsets, ephemeral bytes != 33, or decompression failure.
	KindInvalidAnnouncementLayout
	// KindValueOutOfRange: Pedersen value >= the group order.
	KindValueOutOfRange
	// KindPermissionViolation: a viewing-key permission check failed.
	KindPermissionViolation
	// KindExpired: a viewing-key export is past its expiry.
	KindExpired
	// KindRngFailure: the underlying RNG refused to produce randomness.
	KindRngFailure
	// KindUnsupportedScheme: schemeId is not recognized.
	KindUnsupportedScheme
)

func (k Kind) String() string {
	switch k {
	case KindInvalidScalar:
		return "InvalidScalar"
	case KindInvalidPoint:
		return "InvalidPoint"
	case KindInvalidMetaAddressFormat:
		return "InvalidMetaAddressFormat"
	case KindInvalidAnnouncementLayout:
		return "InvalidAnnouncementLayout"
	case KindValueOutOfRange:
		return "ValueOutOfRange"
	case KindPermissionViolation:
		return "PermissionViolation"
	case KindExpired:
		return "Expired"
	case KindRngFailure:
		return "RngFailure"
	case KindUnsupportedScheme:
		return "UnsupportedScheme"
	default:
		return "Unknown"
	}
}

// Error is the structured fault every fallible core operation returns.
// It carries the taxonomy Kind, the offending field name, and a
// human-readable reason — never a bare string, per spec.md §7's
// propagation policy (no retry, no recovery, no silent coercion).
type Error struct {
	Kind   Kind
	Field  string
	Reason string
	Err    error // wrapped cause, if any
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("sip: %s: field %q: %s", e.Kind, e.Field, e.Reason)
	}
	return fmt.Sprintf("sip: %s: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is a *Error with the same Kind, so callers
// can write errors.Is(err, &sip.Error{Kind: sip.KindExpired}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func newErr(kind Kind, field, reason string) *Error {
	return &Error{Kind: kind, Field: field, Reason: reason}
}

func wrapErr(kind Kind, field, reason string, cause error) *Error {
	return &Error{Kind: kind, Field: field, Reason: reason, Err: cause}
}

// IsInvalidScalar reports whether err is (or wraps) a KindInvalidScalar error.
func IsInvalidScalar(err error) bool { return hasKind(err, KindInvalidScalar) }

// IsInvalidPoint reports whether err is (or wraps) a KindInvalidPoint error.
func IsInvalidPoint(err error) bool { return hasKind(err, KindInvalidPoint) }

// IsInvalidMetaAddressFormat reports whether err is (or wraps) a
// KindInvalidMetaAddressFormat error.
func IsInvalidMetaAddressFormat(err error) bool {
	return hasKind(err, KindInvalidMetaAddressFormat)
}

// IsInvalidAnnouncementLayout reports whether err is (or wraps) a
// KindInvalidAnnouncementLayout error.
func IsInvalidAnnouncementLayout(err error) bool {
	return hasKind(err, KindInvalidAnnouncementLayout)
}

// IsValueOutOfRange reports whether err is (or wraps) a KindValueOutOfRange error.
func IsValueOutOfRange(err error) bool { return hasKind(err, KindValueOutOfRange) }

// IsPermissionViolation reports whether err is (or wraps) a
// KindPermissionViolation error.
func IsPermissionViolation(err error) bool { return hasKind(err, KindPermissionViolation) }

// IsExpired reports whether err is (or wraps) a KindExpired error.
func IsExpired(err error) bool { return hasKind(err, KindExpired) }

// IsRngFailure reports whether err is (or wraps) a KindRngFailure error.
func IsRngFailure(err error) bool { return hasKind(err, KindRngFailure) }

// IsUnsupportedScheme reports whether err is (or wraps) a KindUnsupportedScheme error.
func IsUnsupportedScheme(err error) bool { return hasKind(err, KindUnsupportedScheme) }

func hasKind(err error, kind Kind) bool {
	for err != nil {
		if se, ok := err.(*Error); ok {
			if se.Kind == kind {
				return true
			}
			err = se.Err
			continue
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
