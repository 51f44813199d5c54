package handlers_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/tabletop/internal/chat"
	"github.com/cory-johannsen/tabletop/internal/config"
	"github.com/cory-johannsen/tabletop/internal/frontend/handlers"
	"github.com/cory-johannsen/tabletop/internal/frontend/telnet"
	"github.com/cory-johannsen/tabletop/internal/testutil"
)

type fakeRiskLog struct {
	mu      sync.Mutex
	msgs    []chat.Message
	sendErr error
}

func (f *fakeRiskLog) Send(_ context.Context, channel chat.Channel, content string) (chat.SendResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return chat.SendResult{}, f.sendErr
	}
	user := chat.Message{Channel: channel, Role: chat.RoleUser, Content: content}
	reply := chat.Message{Channel: channel, Role: chat.RoleSystem, Content: "resolved " + content + "\nsecond line"}
	f.msgs = append(f.msgs, user, reply)
	return chat.SendResult{Message: user, Reply: &reply}, nil
}

func (f *fakeRiskLog) List(context.Context, chat.Channel) ([]chat.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]chat.Message(nil), f.msgs...), nil
}

func startTable(t *testing.T, log handlers.RiskLog) *testutil.TelnetClient {
	t.Helper()
	logger := zaptest.NewLogger(t)
	acc := telnet.NewAcceptor(config.TelnetConfig{
		Enabled:      true,
		Host:         "127.0.0.1",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}, handlers.NewRiskTableHandler(log, logger), logger)

	go func() { _ = acc.Start() }()
	t.Cleanup(acc.Stop)
	require.Eventually(t, func() bool { return acc.Addr() != "" }, 2*time.Second, 5*time.Millisecond)

	client := testutil.NewTelnetClient(t, acc.Addr())
	client.ReadUntil("risk> "+telnet.Reset, 2*time.Second)
	return client
}

const prompt = "risk> " + telnet.Reset

func TestRiskTable_ResolvesLines(t *testing.T) {
	log := &fakeRiskLog{}
	client := startTable(t, log)

	client.Send("31")
	out := telnet.StripANSI(client.ReadUntil(prompt, 2*time.Second))
	assert.Contains(t, out, "resolved 31\r\nsecond line\r\n")

	msgs, _ := log.List(context.Background(), chat.ChannelRisk)
	require.Len(t, msgs, 2)
	assert.Equal(t, chat.ChannelRisk, msgs[0].Channel)
}

func TestRiskTable_EmptyLineOnlyReprompts(t *testing.T) {
	log := &fakeRiskLog{}
	client := startTable(t, log)

	client.Send("   ")
	client.ReadUntil(prompt, 2*time.Second)
	msgs, _ := log.List(context.Background(), chat.ChannelRisk)
	assert.Empty(t, msgs)
}

func TestRiskTable_History(t *testing.T) {
	log := &fakeRiskLog{}
	for i := 0; i < 15; i++ {
		_, _ = log.Send(context.Background(), chat.ChannelRisk, fmt.Sprint(i))
	}
	client := startTable(t, log)

	client.Send("history")
	out := telnet.StripANSI(client.ReadUntil(prompt, 2*time.Second))
	assert.NotContains(t, out, "> 4\r\n")
	assert.Contains(t, out, "> 5\r\n")
	assert.Contains(t, out, "> 14\r\n")
	assert.Contains(t, out, "  resolved 14\r\n  second line\r\n")
	// ten player lines plus ten two-line replies
	assert.Equal(t, 30, strings.Count(out, "\r\n"))
}

func TestRiskTable_EmptyHistory(t *testing.T) {
	client := startTable(t, &fakeRiskLog{})
	client.Send("HISTORY")
	assert.Contains(t, client.ReadUntil(prompt, 2*time.Second), "No rolls yet.")
}

func TestRiskTable_StoreFailureKeepsSession(t *testing.T) {
	log := &fakeRiskLog{sendErr: errors.New("db down")}
	client := startTable(t, log)

	client.Send("31")
	assert.Contains(t, client.ReadUntil(prompt, 2*time.Second), "The table is unavailable")

	client.Send("quit")
	assert.Contains(t, client.ReadUntil("Goodbye!"+telnet.Reset+"\r\n", 2*time.Second), "Goodbye!")
}

func TestFormatHistoryEntry(t *testing.T) {
	user := chat.Message{Role: chat.RoleUser, Content: "countries 3"}
	reply := chat.Message{Role: chat.RoleSystem, Content: "Player 1:\nA"}
	assert.Equal(t, "> countries 3", telnet.StripANSI(handlers.FormatHistoryEntry(user)))
	assert.Equal(t, "  Player 1:\n  A", telnet.StripANSI(handlers.FormatHistoryEntry(reply)))
}
