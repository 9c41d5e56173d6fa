package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/hammamikhairi/mysteryhost/internal/logger"
)

type capturePrinter struct {
	chat   []string
	urgent []string
}

func (c *capturePrinter) PrintChat(text string)   { c.chat = append(c.chat, text) }
func (c *capturePrinter) PrintUrgent(text string) { c.urgent = append(c.urgent, text) }

func TestCLINotifier(t *testing.T) {
	p := &capturePrinter{}
	n := NewCLINotifier(logger.New(logger.LevelOff, nil), p)
	n.now = func() time.Time { return time.Date(2026, 1, 1, 21, 5, 9, 0, time.UTC) }

	n.Notify(context.Background(), "마지막 1분 남았습니다.")
	n.NotifyUrgent(context.Background(), "TTS 재생 중 오류가 발생했습니다.")

	if len(p.chat) != 1 || p.chat[0] != "21:05:09  마지막 1분 남았습니다." {
		t.Fatalf("unexpected chat lines %q", p.chat)
	}
	if len(p.urgent) != 1 || p.urgent[0] != "21:05:09  ! TTS 재생 중 오류가 발생했습니다." {
		t.Fatalf("unexpected urgent lines %q", p.urgent)
	}
}
