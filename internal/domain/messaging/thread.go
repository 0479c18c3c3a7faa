package messaging

import (
	"sort"

	"github.com/google/uuid"

	"github.com/carebridge/carebridge/internal/platform/auth"
)

// ThreadKeyFor computes the canonical conversation key for a message from
// the viewer's perspective. Report-scoped threads take precedence over
// general threads; doctor-peer threads key on the sorted doctor pair so
// both participants resolve the same thread.
func ThreadKeyFor(viewerID uuid.UUID, viewerRole string, m *Message) string {
	if m.Type == TypeDocDoc {
		a, b := m.FromUserID.String(), m.ToUserID.String()
		if b < a {
			a, b = b, a
		}
		return "peer:" + m.PatientID.String() + ":" + a + ":" + b
	}
	if m.ReportID != nil {
		return "report:" + m.ReportID.String()
	}
	if viewerRole == auth.RoleDoctor {
		return "patient:" + m.PatientID.String()
	}
	doctorID := m.FromUserID
	if doctorID == viewerID {
		doctorID = m.ToUserID
	}
	return "doctor:" + doctorID.String()
}

// GroupThreads buckets messages by thread key, orders each thread by
// creation time ascending, and counts the viewer's unread messages per
// thread. Threads are returned most recently active first. The function
// performs no I/O.
func GroupThreads(viewerID uuid.UUID, viewerRole string, msgs []*MessageView) []*Thread {
	byKey := make(map[string]*Thread)
	var order []string
	for _, m := range msgs {
		key := ThreadKeyFor(viewerID, viewerRole, m.Message)
		th, ok := byKey[key]
		if !ok {
			th = &Thread{Key: key}
			byKey[key] = th
			order = append(order, key)
		}
		th.Messages = append(th.Messages, m)
		if m.ToUserID == viewerID && m.ReadAt == nil {
			th.UnreadCount++
		}
	}
	threads := make([]*Thread, 0, len(byKey))
	for _, key := range order {
		th := byKey[key]
		sort.SliceStable(th.Messages, func(i, j int) bool {
			return th.Messages[i].CreatedAt.Before(th.Messages[j].CreatedAt)
		})
		th.LastMessageAt = th.Messages[len(th.Messages)-1].CreatedAt
		threads = append(threads, th)
	}
	sort.SliceStable(threads, func(i, j int) bool {
		return threads[i].LastMessageAt.After(threads[j].LastMessageAt)
	})
	return threads
}
