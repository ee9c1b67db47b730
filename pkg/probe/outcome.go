package probe

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"syscall"
)

// OutcomeKind discriminates Outcome.
type OutcomeKind int

const (
	// OutcomeResponse means the target answered with a status line.
	OutcomeResponse OutcomeKind = iota
	// OutcomeTimeout means no response arrived before the deadline.
	OutcomeTimeout
	// OutcomeTransport means the exchange failed for any other reason.
	OutcomeTransport
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeResponse:
		return "response"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeTransport:
		return "transport"
	}
	return "unknown"
}

// Failure describes why a request produced no response.
type Failure string

const (
	FailureNone    Failure = ""
	FailureTimeout Failure = "timeout"
	FailureDNS     Failure = "dns"
	FailureRefused Failure = "refused"
	FailureReset   Failure = "reset"
	FailureTLS     Failure = "tls"
	FailureEOF     Failure = "eof"
	FailureOther   Failure = "other"
)

// Outcome is the result of one request attempt. Status and Header are set
// only for OutcomeResponse; Failure and Err only for the other kinds.
type Outcome struct {
	Kind    OutcomeKind
	Status  int
	Header  http.Header
	Failure Failure
	Err     error
}

// Response builds a response outcome.
func Response(status int, header http.Header) Outcome {
	return Outcome{Kind: OutcomeResponse, Status: status, Header: header}
}

// Classify maps an outcome to exactly one event. Timeout wins over any
// status carried by a malformed outcome.
func Classify(o Outcome) Event {
	switch o.Kind {
	case OutcomeTimeout:
		return Timeout
	case OutcomeTransport:
		return Error
	default:
		return ClassifyStatus(o.Status)
	}
}

// OutcomeFromError converts a client error into a timeout or transport
// outcome. A nil error is treated as a transport failure with no cause.
func OutcomeFromError(err error) Outcome {
	if isTimeout(err) {
		return Outcome{Kind: OutcomeTimeout, Failure: FailureTimeout, Err: err}
	}
	return Outcome{Kind: OutcomeTransport, Failure: failureOf(err), Err: err}
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// failureOf narrows a non-timeout transport error for reporting.
func failureOf(err error) Failure {
	if err == nil {
		return FailureOther
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return FailureDNS
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ECONNREFUSED:
			return FailureRefused
		case syscall.ECONNRESET:
			return FailureReset
		}
	}

	var recordErr tls.RecordHeaderError
	var certErr *tls.CertificateVerificationError
	var unknownAuth x509.UnknownAuthorityError
	var hostErr x509.HostnameError
	if errors.As(err, &recordErr) || errors.As(err, &certErr) ||
		errors.As(err, &unknownAuth) || errors.As(err, &hostErr) {
		return FailureTLS
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return FailureEOF
	}

	// Wrapped errors from proxies and the TLS stack lose their types.
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "no such host"):
		return FailureDNS
	case strings.Contains(msg, "connection refused"):
		return FailureRefused
	case strings.Contains(msg, "connection reset"):
		return FailureReset
	case strings.Contains(msg, "tls"), strings.Contains(msg, "x509"),
		strings.Contains(msg, "certificate"), strings.Contains(msg, "handshake"):
		return FailureTLS
	case strings.Contains(msg, "eof"):
		return FailureEOF
	}
	return FailureOther
}
