// Command chatload opens many websocket clients against a running server
// and reports connection and message counts.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gorilla/websocket"
)

type counters struct {
	attempted atomic.Int64
	connected atomic.Int64
	failed    atomic.Int64
	sent      atomic.Int64
	received  atomic.Int64
	errors    atomic.Int64
}

type loadTest struct {
	host     string
	token    string
	room     uint
	interval time.Duration
	api      *resty.Client
	stats    counters
}

func main() {
	host := flag.String("host", "localhost:8080", "API server host")
	deviceID := flag.String("device-id", "", "device id of the account to resume")
	deviceSecret := flag.String("device-secret", "seed-device-secret", "device secret of the account")
	room := flag.Uint("room", 0, "chat room id to message; 0 connects to the inbox only")
	clients := flag.Int("clients", 20, "number of concurrent sockets")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	interval := flag.Duration("interval", 5*time.Second, "delay between messages per client")
	flag.Parse()

	if *deviceID == "" {
		log.Fatal("-device-id is required")
	}

	lt := &loadTest{
		host:     *host,
		room:     *room,
		interval: *interval,
		api: resty.New().
			SetBaseURL("http://" + *host + "/api").
			SetTimeout(5 * time.Second),
	}

	token, err := lt.resume(*deviceID, *deviceSecret)
	if err != nil {
		log.Fatalf("resume failed: %v", err)
	}
	lt.token = token
	log.Printf("target=%s clients=%d duration=%v room=%d", *host, *clients, *duration, *room)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < *clients; i++ {
		wg.Add(1)
		go lt.runClient(i, stop, &wg)
		time.Sleep(50 * time.Millisecond)
	}

	select {
	case <-time.After(*duration):
		log.Println("duration reached")
	case <-interrupt:
		log.Println("interrupted")
	}
	close(stop)
	wg.Wait()
	lt.report()
}

func (lt *loadTest) resume(deviceID, secret string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	resp, err := lt.api.R().
		SetBody(map[string]string{"device_id": deviceID, "device_secret": secret}).
		SetResult(&out).
		Post("/auth/resume")
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", fmt.Errorf("status %d: %s", resp.StatusCode(), resp.String())
	}
	return out.Token, nil
}

func (lt *loadTest) ticket() (string, error) {
	var out struct {
		Ticket string `json:"ticket"`
	}
	resp, err := lt.api.R().SetAuthToken(lt.token).SetResult(&out).Post("/auth/ws-ticket")
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", fmt.Errorf("ticket status %d", resp.StatusCode())
	}
	return out.Ticket, nil
}

func (lt *loadTest) runClient(id int, stop <-chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()
	lt.stats.attempted.Add(1)

	ticket, err := lt.ticket()
	if err != nil {
		lt.stats.failed.Add(1)
		lt.stats.errors.Add(1)
		return
	}

	path := "/ws/inbox"
	if lt.room != 0 {
		path = fmt.Sprintf("/ws/rooms/%d", lt.room)
	}
	u := url.URL{Scheme: "ws", Host: lt.host, Path: path, RawQuery: "ticket=" + url.QueryEscape(ticket)}
	conn, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if resp != nil && resp.Body != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	if err != nil {
		lt.stats.failed.Add(1)
		lt.stats.errors.Add(1)
		return
	}
	defer func() { _ = conn.Close() }()
	lt.stats.connected.Add(1)

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
			lt.stats.received.Add(1)
		}
	}()

	ticker := time.NewTicker(lt.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case <-ticker.C:
			if lt.room == 0 {
				continue
			}
			frame := map[string]string{"type": "message", "content": fmt.Sprintf("load test %d at %s", id, time.Now().Format(time.TimeOnly))}
			if err := conn.WriteJSON(frame); err != nil {
				lt.stats.errors.Add(1)
				return
			}
			lt.stats.sent.Add(1)
		}
	}
}

func (lt *loadTest) report() {
	log.Printf("connections attempted=%d ok=%d failed=%d",
		lt.stats.attempted.Load(), lt.stats.connected.Load(), lt.stats.failed.Load())
	log.Printf("messages sent=%d received=%d errors=%d",
		lt.stats.sent.Load(), lt.stats.received.Load(), lt.stats.errors.Load())
}
