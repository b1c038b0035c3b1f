package activitylog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pavelanni/mrtutor/internal/model"
)

// ErrEmptyLog is returned by Decode when the data holds no session.
var ErrEmptyLog = errors.New("log holds no session")

// Decode reads session logs in any of the shapes they are written in: a
// whole Log ({"sessions": [...]}), an array of sessions, or one session.
func Decode(data []byte) ([]*model.Session, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrEmptyLog
	}

	var sessions []*model.Session
	if data[0] == '[' {
		if err := json.Unmarshal(data, &sessions); err != nil {
			return nil, fmt.Errorf("decode sessions: %w", err)
		}
	} else {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(data, &fields); err != nil {
			return nil, fmt.Errorf("decode log: %w", err)
		}
		if _, ok := fields["sessions"]; ok {
			var l Log
			if err := json.Unmarshal(data, &l); err != nil {
				return nil, fmt.Errorf("decode log: %w", err)
			}
			sessions = l.Sessions
		} else {
			var s model.Session
			if err := json.Unmarshal(data, &s); err != nil {
				return nil, fmt.Errorf("decode session: %w", err)
			}
			sessions = []*model.Session{&s}
		}
	}

	out := sessions[:0]
	for _, s := range sessions {
		if s != nil {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil, ErrEmptyLog
	}
	return out, nil
}
