package userpass

import "fmt"

// SubnegotiationVersion is the first byte of a sub-negotiation message.
type SubnegotiationVersion byte

const (
	VersionNoAuth   SubnegotiationVersion = 0x00
	VersionPassword SubnegotiationVersion = 0x02
)

func (v SubnegotiationVersion) String() string {
	switch v {
	case VersionNoAuth:
		return "no-auth"
	case VersionPassword:
		return "password"
	default:
		return fmt.Sprintf("unknown(0x%02x)", byte(v))
	}
}

// State is the decoder's position in the message. States only move forward.
type State uint8

const (
	StateCheckVersion State = iota
	StateReadUsername
	StateReadPassword
)

func (s State) String() string {
	switch s {
	case StateCheckVersion:
		return "check-version"
	case StateReadUsername:
		return "read-username"
	case StateReadPassword:
		return "read-password"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Request holds the credentials carried by a password sub-negotiation.
type Request struct {
	Username string
	Password string
}

// Status is the outcome of a Feed call.
type Status uint8

const (
	// StatusPending means more bytes are needed.
	StatusPending Status = iota
	// StatusDecoded means Result.Request holds a complete request.
	StatusDecoded
	// StatusUnsupported means the version byte did not select password
	// authentication. Only the version byte was consumed.
	StatusUnsupported
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusDecoded:
		return "decoded"
	case StatusUnsupported:
		return "unsupported"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// Result is what a Decoder produces. Request is only set for StatusDecoded.
type Result struct {
	Status  Status
	Version SubnegotiationVersion
	Request Request
}

// Done reports whether r is terminal.
func (r Result) Done() bool {
	return r.Status == StatusDecoded || r.Status == StatusUnsupported
}

// Decoder is a resumable parser for one sub-negotiation message. It is owned
// by a single connection and is not safe for concurrent use.
type Decoder struct {
	passwordVersion SubnegotiationVersion

	state    State
	version  SubnegotiationVersion
	username string
	finished bool
}

// NewDecoder returns a Decoder positioned at the version byte.
func NewDecoder(opts ...Option) *Decoder {
	cfg := &config{passwordVersion: VersionPassword}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Decoder{passwordVersion: cfg.passwordVersion}
}

// State returns the state the next Feed resumes from.
func (d *Decoder) State() State {
	return d.state
}

// Finished reports whether the decoder has produced its result.
func (d *Decoder) Finished() bool {
	return d.finished
}

// Feed advances the decoder as far as p allows and returns the number of
// bytes consumed from the front of p. The caller must drop those bytes and
// pass the remainder, plus anything newer, to the next call.
//
// A field is consumed only when it is complete, so on StatusPending the
// unconsumed tail of p must be offered again. A finished decoder is inert: it
// consumes nothing and returns a zero Result.
func (d *Decoder) Feed(p []byte) (n int, res Result) {
	if d.finished {
		return 0, Result{}
	}

	for {
		switch d.state {
		case StateCheckVersion:
			if len(p) < 1 {
				return n, Result{}
			}
			d.version = SubnegotiationVersion(p[0])
			n++
			if d.version != d.passwordVersion {
				return n, d.finish(Result{Status: StatusUnsupported, Version: d.version})
			}
			p = p[1:]
			d.state = StateReadUsername

		case StateReadUsername:
			field, k, ok := readField(p)
			if !ok {
				return n, Result{}
			}
			d.username = field
			n += k
			p = p[k:]
			d.state = StateReadPassword

		case StateReadPassword:
			field, k, ok := readField(p)
			if !ok {
				return n, Result{}
			}
			n += k
			return n, d.finish(Result{
				Status:  StatusDecoded,
				Version: d.version,
				Request: Request{Username: d.username, Password: field},
			})

		default:
			panic(fmt.Sprintf("userpass: invalid decoder state %v", d.state))
		}
	}
}

func (d *Decoder) finish(res Result) Result {
	d.finished = true
	d.username = ""
	return res
}

// readField reads a one-byte length followed by that many bytes. It reports
// ok=false, consuming nothing, until the whole field is present.
func readField(p []byte) (field string, n int, ok bool) {
	if len(p) < 1 {
		return "", 0, false
	}
	l := int(p[0])
	if len(p) < 1+l {
		return "", 0, false
	}
	return string(p[1 : 1+l]), 1 + l, true
}
