package botui_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nkaliyev/tengebot/internal/botui"
	"github.com/nkaliyev/tengebot/internal/telegram"
)

func chatUpdate(updateID, chatID int64) telegram.Update {
	return telegram.Update{
		UpdateID: updateID,
		Message:  &telegram.Message{MessageID: updateID, Chat: telegram.Chat{ID: chatID}, Text: "500"},
	}
}

func TestDispatcherKeepsChatOrder(t *testing.T) {
	const n = 25

	var mu sync.Mutex
	var got []int64
	done := make(chan struct{})

	d := botui.NewDispatcher(func(ctx context.Context, upd telegram.Update) {
		mu.Lock()
		got = append(got, upd.UpdateID)
		finished := len(got) == n
		mu.Unlock()
		if finished {
			close(done)
		}
	}, n)
	d.Start(context.Background())

	for i := int64(1); i <= n; i++ {
		if err := d.Dispatch(chatUpdate(i, 118)); err != nil {
			t.Fatalf("Dispatch(%d) returned error: %v", i, err)
		}
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for updates to be handled")
	}

	for i, id := range got {
		if want := int64(i + 1); id != want {
			t.Fatalf("update %d handled out of order: got id %d, want %d", i, id, want)
		}
	}

	if err := d.Stop(context.Background()); err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}
}

func TestDispatcherChatsDoNotBlockEachOther(t *testing.T) {
	started := make(chan int64, 4)
	release := make(chan struct{})

	d := botui.NewDispatcher(func(ctx context.Context, upd telegram.Update) {
		started <- upd.ChatID()
		if upd.ChatID() == 1 {
			<-release
		}
	}, 4)
	d.Start(context.Background())
	defer func() {
		close(release)
		_ = d.Stop(context.Background())
	}()

	if err := d.Dispatch(chatUpdate(1, 1)); err != nil {
		t.Fatalf("Dispatch to chat 1 returned error: %v", err)
	}
	waitForChat(t, started, 1)

	// Chat 1 is now stuck in its handler; its second update queues behind
	// it while chat 2 should still get through.
	if err := d.Dispatch(chatUpdate(2, 1)); err != nil {
		t.Fatalf("Dispatch second update to chat 1 returned error: %v", err)
	}
	if err := d.Dispatch(chatUpdate(3, 2)); err != nil {
		t.Fatalf("Dispatch to chat 2 returned error: %v", err)
	}
	waitForChat(t, started, 2)
}

func waitForChat(t *testing.T, started <-chan int64, want int64) {
	t.Helper()
	select {
	case got := <-started:
		if got != want {
			t.Fatalf("handler started for chat %d, want chat %d", got, want)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for chat %d handler", want)
	}
}

func TestDispatcherRecoversFromPanic(t *testing.T) {
	handled := make(chan int64, 2)

	d := botui.NewDispatcher(func(ctx context.Context, upd telegram.Update) {
		if upd.UpdateID == 1 {
			panic("boom")
		}
		handled <- upd.UpdateID
	}, 2)
	d.Start(context.Background())
	defer d.Stop(context.Background())

	if err := d.Dispatch(chatUpdate(1, 118)); err != nil {
		t.Fatalf("Dispatch returned error: %v", err)
	}
	if err := d.Dispatch(chatUpdate(2, 118)); err != nil {
		t.Fatalf("Dispatch returned error: %v", err)
	}

	select {
	case id := <-handled:
		if id != 2 {
			t.Fatalf("handled update %d, want 2", id)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("lane died after panic: second update never handled")
	}
}

func TestDispatcherRejectsWhenNotRunning(t *testing.T) {
	d := botui.NewDispatcher(func(ctx context.Context, upd telegram.Update) {}, 1)

	if err := d.Dispatch(chatUpdate(1, 118)); err == nil {
		t.Fatal("Dispatch before Start should fail")
	}

	d.Start(context.Background())
	if err := d.Dispatch(telegram.Update{UpdateID: 2}); err == nil {
		t.Fatal("Dispatch of an update without a chat should fail")
	}

	if err := d.Stop(context.Background()); err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}
	if err := d.Dispatch(chatUpdate(3, 118)); err == nil {
		t.Fatal("Dispatch after Stop should fail")
	}
}

func TestDispatcherStopTimesOutOnStuckHandler(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})

	d := botui.NewDispatcher(func(ctx context.Context, upd telegram.Update) {
		close(entered)
		<-release
	}, 1)
	d.Start(context.Background())

	if err := d.Dispatch(chatUpdate(1, 118)); err != nil {
		t.Fatalf("Dispatch returned error: %v", err)
	}
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := d.Stop(ctx); err == nil {
		t.Fatal("Stop should give up on a handler that never returns")
	}
	close(release)
}
