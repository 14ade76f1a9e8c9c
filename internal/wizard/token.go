package wizard

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MaxTokenBytes is the hard ceiling Telegram puts on callback_data.
const MaxTokenBytes = 64

var (
	// ErrTokenTooLong means the state cannot fit the payload limit even
	// after every optional field has been shed.
	ErrTokenTooLong = errors.New("token exceeds the callback payload limit")
	// ErrBadToken means the payload is not a token this codec produced.
	ErrBadToken = errors.New("malformed token")
)

// Display names inside tokens are capped at this many runes; identifiers
// are never shortened.
const nameRunes = 10

func truncateName(s string) string {
	r := []rune(s)
	if len(r) <= nameRunes {
		return s
	}
	return string(r[:nameRunes])
}

// Encode serializes the state into callback_data. Names are truncated
// first; if the token still does not fit, names are dropped, then the
// message id. Identifiers and the amount are never sacrificed: a state
// that cannot fit without them fails loudly with ErrTokenTooLong.
func Encode(st State) (string, error) {
	st.CategoryName = truncateName(st.CategoryName)
	st.AccountName = truncateName(st.AccountName)

	tok := st.marshal(true, true)
	if len(tok) <= MaxTokenBytes {
		return tok, nil
	}
	tok = st.marshal(false, true)
	if len(tok) <= MaxTokenBytes {
		return tok, nil
	}
	tok = st.marshal(false, false)
	if len(tok) <= MaxTokenBytes {
		return tok, nil
	}
	return "", fmt.Errorf("Encode: %d bytes after reduction: %w", len(tok), ErrTokenTooLong)
}

// marshal writes present fields in a fixed key order so that equal states
// always produce identical bytes.
func (st State) marshal(withNames, withMessage bool) string {
	var b strings.Builder
	b.WriteByte('{')
	first := true
	field := func(key, raw string) {
		if !first {
			b.WriteByte(',')
		}
		first = false
		b.WriteByte('"')
		b.WriteString(key)
		b.WriteString(`":`)
		b.WriteString(raw)
	}
	str := func(key, val string) {
		quoted, _ := json.Marshal(val)
		field(key, string(quoted))
	}

	if withMessage && st.MessageID != 0 {
		field("m", strconv.FormatInt(st.MessageID, 10))
	}
	if st.Amount != 0 {
		field("a", strconv.FormatInt(st.Amount, 10))
	}
	if st.Kind != KindNone {
		str("t", string(st.Kind))
	}
	if st.CategoryID != "" {
		str("c", st.CategoryID)
	}
	if withNames && st.CategoryName != "" {
		str("cn", st.CategoryName)
	}
	if st.SourceID != "" {
		str("s", st.SourceID)
	}
	if st.DestinationID != "" {
		str("d", st.DestinationID)
	}
	if withNames && st.AccountName != "" {
		str("an", st.AccountName)
	}
	if st.Action != ActionNone {
		str("action", string(st.Action))
	}
	if st.Finalize {
		field("f", "true")
	}
	b.WriteByte('}')
	return b.String()
}

// Decode parses callback_data back into a state. Anything that is not
// valid JSON, carries unknown codes, or is empty of meaning fails with
// ErrBadToken; the caller re-prompts instead of guessing.
func Decode(data string) (State, error) {
	if data == "" || len(data) > MaxTokenBytes {
		return State{}, fmt.Errorf("Decode: %d byte payload: %w", len(data), ErrBadToken)
	}
	var raw struct {
		M      int64  `json:"m"`
		A      int64  `json:"a"`
		T      string `json:"t"`
		C      string `json:"c"`
		CN     string `json:"cn"`
		S      string `json:"s"`
		D      string `json:"d"`
		AN     string `json:"an"`
		Action string `json:"action"`
		F      bool   `json:"f"`
	}
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return State{}, fmt.Errorf("Decode: unmarshal %q: %w", data, ErrBadToken)
	}
	st := State{
		Amount:        raw.A,
		Kind:          Kind(raw.T),
		CategoryID:    raw.C,
		CategoryName:  raw.CN,
		SourceID:      raw.S,
		DestinationID: raw.D,
		AccountName:   raw.AN,
		MessageID:     raw.M,
		Action:        Action(raw.Action),
		Finalize:      raw.F,
	}
	if !st.Kind.Valid() || !st.Action.Valid() || st.Amount < 0 {
		return State{}, fmt.Errorf("Decode: unknown codes in %q: %w", data, ErrBadToken)
	}
	if st.Action == ActionNone && st.Amount == 0 {
		// Every selection token carries the amount, so {} and foreign
		// payloads land here.
		return State{}, fmt.Errorf("Decode: empty token %q: %w", data, ErrBadToken)
	}
	return st, nil
}
