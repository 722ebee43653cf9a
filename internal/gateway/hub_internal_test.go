package gateway

import (
	"encoding/json"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/dir-sync/internal/syncengine"
)

func TestHub_DropsSlowClients(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	hub := NewHub(log.New(io.Discard))
	slow := &client{send: make(chan []byte, 2), remote: "slow"}
	fast := &client{send: make(chan []byte, 16), remote: "fast"}
	hub.register(slow)
	hub.register(fast)

	for range 3 {
		hub.Emit(syncengine.LogMessage{Level: syncengine.LevelInfo, Text: "tick"})
	}

	g.Expect(hub.ClientCount()).Should(Equal(1))
	g.Expect(fast.send).Should(HaveLen(3))

	// The slow client's queue is closed after its buffered frames.
	g.Expect(slow.send).Should(HaveLen(2))
	<-slow.send
	<-slow.send
	_, open := <-slow.send
	g.Expect(open).Should(BeFalse())

	// A dropped client is ignored from then on.
	hub.sendTo(slow, syncengine.OperationEnded{})
	hub.unregister(slow)
}

func TestEncodeFrame(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	data, err := encodeFrame(syncengine.OperationEnded{Stage: syncengine.StageDiffing})
	g.Expect(err).ShouldNot(HaveOccurred())

	var decoded map[string]any
	g.Expect(json.Unmarshal(data, &decoded)).Should(Succeed())
	g.Expect(decoded).Should(Equal(map[string]any{
		"event": "operation_ended",
		"data":  map[string]any{"stage": "diffing"},
	}))
}
