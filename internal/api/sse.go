package api

import "github.com/sirupsen/logrus"

type sseMessage struct {
	event string
	data  interface{}
}

// 同一 client_id 可以有多个订阅连接（多个标签页）
func (h *HTTPHandler) registerSSEClient(clientID string, ch chan sseMessage) {
	if h == nil || ch == nil || clientID == "" {
		return
	}
	h.sseMu.Lock()
	defer h.sseMu.Unlock()

	if h.sseClients == nil {
		h.sseClients = make(map[string][]chan sseMessage)
	}
	h.sseClients[clientID] = append(h.sseClients[clientID], ch)
}

func (h *HTTPHandler) unregisterSSEClient(clientID string, target chan sseMessage) {
	if h == nil || target == nil || clientID == "" {
		return
	}
	h.sseMu.Lock()
	defer h.sseMu.Unlock()

	current := h.sseClients[clientID]
	remaining := current[:0]
	for _, ch := range current {
		if ch != target {
			remaining = append(remaining, ch)
		}
	}

	if len(remaining) == 0 {
		delete(h.sseClients, clientID)
		return
	}
	h.sseClients[clientID] = remaining
}

// publishSSEMessage 非阻塞投递，消费过慢的连接直接丢弃事件
func (h *HTTPHandler) publishSSEMessage(clientID string, msg sseMessage) {
	if h == nil || clientID == "" {
		return
	}

	// 持锁投递，避免与 CloseSSEClients 并发时向已关闭的通道写入
	h.sseMu.Lock()
	defer h.sseMu.Unlock()

	for _, ch := range h.sseClients[clientID] {
		select {
		case ch <- msg:
		default:
			logrus.WithFields(logrus.Fields{
				"client_id": clientID,
				"event":     msg.event,
			}).Warn("dropping sse message due to slow consumer")
		}
	}
}

// CloseSSEClients 关闭全部订阅，用于优雅退出时结束长连接
func (h *HTTPHandler) CloseSSEClients() {
	if h == nil {
		return
	}
	h.sseMu.Lock()
	defer h.sseMu.Unlock()

	for clientID, channels := range h.sseClients {
		for _, ch := range channels {
			close(ch)
		}
		delete(h.sseClients, clientID)
	}
}
