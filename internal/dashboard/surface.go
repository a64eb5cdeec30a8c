package dashboard

import (
	"encoding/json"
	"time"

	"github.com/campuskit/facemark/internal/attendance"
	"github.com/campuskit/facemark/internal/capture"
	"github.com/campuskit/facemark/internal/logger"
)

// Surface adapts the websocket hub to the capture loop and scheduler event
// callbacks. Events go out as JSON text messages, frames as binary.
type Surface struct {
	hub *Hub
	log *logger.Logger
}

func NewSurface(hub *Hub, log *logger.Logger) *Surface {
	return &Surface{hub: hub, log: log}
}

type event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func (s *Surface) send(typ string, data interface{}) {
	payload, err := json.Marshal(event{Type: typ, Data: data})
	if err != nil {
		s.log.Warning("event encode failed: %v", err)
		return
	}
	s.hub.BroadcastText(payload)
}

func (s *Surface) OnCaptureState(state capture.State) {
	s.send("capture_state", map[string]string{"state": string(state)})
}

func (s *Surface) OnAttendanceMarked(mark attendance.Mark, confidence int) {
	s.send("attendance_marked", map[string]interface{}{
		"subject_id": mark.Student.SubjectID,
		"full_name":  mark.Student.FullName,
		"status":     string(mark.Status),
		"time":       mark.At.Format("15:04:05"),
		"confidence": confidence,
	})
}

// OnSchedulerLog implements schedule.LogSink.
func (s *Surface) OnSchedulerLog(msg string) {
	s.send("scheduler_log", map[string]string{
		"message": msg,
		"time":    time.Now().Format("15:04:05"),
	})
}

func (s *Surface) PublishFrame(jpegFrame []byte) {
	s.hub.BroadcastBinary(jpegFrame)
}

var _ capture.Surface = (*Surface)(nil)
