package models

import (
	"fmt"
	"strings"
)

// Outcome is the tri-state result of comparing one pair of entries
type Outcome string

const (
	// OutcomeEqual indicates the pair is equivalent
	OutcomeEqual Outcome = "equal"
	// OutcomeUnequal indicates a confirmed difference
	OutcomeUnequal Outcome = "unequal"
	// OutcomeError indicates the comparison itself was inconclusive
	OutcomeError Outcome = "error"
)

// Reason categorizes why a pair is not equal
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonSizeMismatch     Reason = "size-mismatch"
	ReasonContentAtOffset  Reason = "content-mismatch-at-offset"
	ReasonContentAtLine    Reason = "content-mismatch-at-line"
	ReasonDigestMismatch   Reason = "digest-mismatch"
	ReasonMissingOnLeft    Reason = "missing-on-left"
	ReasonMissingOnRight   Reason = "missing-on-right"
	ReasonTypeMismatch     Reason = "type-mismatch"
	ReasonLinkTarget       Reason = "link-target-mismatch"
	ReasonMetadataMismatch Reason = "metadata-mismatch"
	ReasonSectionMismatch  Reason = "section-mismatch"
	ReasonAggregate        Reason = "aggregate"
)

// Verdict is the outcome of comparing one pair of entries
type Verdict struct {
	Outcome Outcome `json:"outcome"`
	Reason  Reason  `json:"reason,omitempty"`
	Detail  string  `json:"detail,omitempty"`
	// Err is set for OutcomeError only
	Err error `json:"-"`
	// Failing names the first failing children of an aggregate verdict
	Failing []string `json:"failing,omitempty"`
}

// Equal returns an equal verdict with an optional detail
func Equal(detail string) Verdict {
	return Verdict{Outcome: OutcomeEqual, Detail: detail}
}

// Unequal returns an unequal verdict
func Unequal(reason Reason, format string, args ...any) Verdict {
	return Verdict{Outcome: OutcomeUnequal, Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// Failed returns an error verdict
func Failed(err error) Verdict {
	return Verdict{Outcome: OutcomeError, Err: err, Detail: errString(err)}
}

// IsEqual reports whether the verdict is Equal
func (v Verdict) IsEqual() bool { return v.Outcome == OutcomeEqual }

// IsError reports whether the verdict is Error
func (v Verdict) IsError() bool { return v.Outcome == OutcomeError }

// Mirror swaps the sidedness of a missing-on-* verdict. Any other verdict
// is returned unchanged.
func (v Verdict) Mirror() Verdict {
	switch v.Reason {
	case ReasonMissingOnLeft:
		v.Reason = ReasonMissingOnRight
	case ReasonMissingOnRight:
		v.Reason = ReasonMissingOnLeft
	}
	return v
}

func (v Verdict) String() string {
	var b strings.Builder
	b.WriteString(string(v.Outcome))
	if v.Reason != ReasonNone {
		b.WriteString(" (")
		b.WriteString(string(v.Reason))
		b.WriteString(")")
	}
	if v.Detail != "" {
		b.WriteString(": ")
		b.WriteString(v.Detail)
	}
	return b.String()
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
