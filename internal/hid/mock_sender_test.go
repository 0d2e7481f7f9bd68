package hid

import (
	"errors"

	"github.com/chaz8081/vknob/internal/link"
)

type notification struct {
	handle uint16
	data   []byte
}

// mockSender serves a fixed CCCD value and records notifications.
type mockSender struct {
	cccd    []byte
	readErr error

	// results and errs are consumed per Notify call; when exhausted the
	// call succeeds with WorkDidSend.
	results []link.WorkResult
	errs    []error

	sent []notification
}

var errMockRead = errors.New("mock: read failed")

func (m *mockSender) ReadAttribute(handle uint16, offset int, dst []byte) (int, error) {
	if m.readErr != nil {
		return 0, m.readErr
	}
	if offset >= len(m.cccd) {
		return 0, nil
	}
	return copy(dst, m.cccd[offset:]), nil
}

func (m *mockSender) Notify(handle uint16, data []byte) (link.WorkResult, error) {
	cp := make([]byte, len(data))
	copy(cp, data)
	m.sent = append(m.sent, notification{handle: handle, data: cp})

	i := len(m.sent) - 1
	var res link.WorkResult
	var err error
	if i < len(m.results) {
		res = m.results[i]
	}
	if i < len(m.errs) {
		err = m.errs[i]
	}
	return res, err
}

var _ KeypressSender = (*mockSender)(nil)
