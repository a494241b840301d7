package resumable

import (
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/docker/go-units"

	"github.com/tidalstore/tidal-go/blob/protocol"
)

// LoggingSession decorates an UploadSession with debug logging of every
// call, its payload size and its outcome.
type LoggingSession struct {
	session UploadSession
	logger  log.Logger
}

// NewLoggingSession wraps session.
func NewLoggingSession(session UploadSession, logger log.Logger) *LoggingSession {
	return &LoggingSession{session: session, logger: logger}
}

// UploadChunk ...
func (s *LoggingSession) UploadChunk(p []byte) (*protocol.UploadResponse, error) {
	s.logger.Debugf("UploadChunk: size=%s offset=%d", units.BytesSize(float64(len(p))), s.session.NextExpectedByte())
	resp, err := s.session.UploadChunk(p)
	s.logOutcome("UploadChunk", resp, err)
	return resp, err
}

// UploadFinalChunk ...
func (s *LoggingSession) UploadFinalChunk(p []byte, uploadSize uint64) (*protocol.UploadResponse, error) {
	s.logger.Debugf("UploadFinalChunk: size=%s uploadSize=%s",
		units.BytesSize(float64(len(p))), units.BytesSize(float64(uploadSize)))
	resp, err := s.session.UploadFinalChunk(p, uploadSize)
	s.logOutcome("UploadFinalChunk", resp, err)
	return resp, err
}

// Reset ...
func (s *LoggingSession) Reset() (*protocol.UploadResponse, error) {
	s.logger.Debugf("Reset: session=%s", s.session.SessionID())
	resp, err := s.session.Reset()
	s.logOutcome("Reset", resp, err)
	return resp, err
}

// NextExpectedByte ...
func (s *LoggingSession) NextExpectedByte() uint64 { return s.session.NextExpectedByte() }

// SessionID ...
func (s *LoggingSession) SessionID() string { return s.session.SessionID() }

func (s *LoggingSession) logOutcome(op string, resp *protocol.UploadResponse, err error) {
	if err != nil {
		s.logger.Warnf("%s failed: %s", op, err)
		return
	}
	s.logger.Debugf("%s done: lastCommittedByte=%d", op, resp.LastCommittedByte)
}
