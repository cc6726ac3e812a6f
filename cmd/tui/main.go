package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/gorilla/websocket"

	"crowdfield.ai/internal/observerproto"
	"crowdfield.ai/internal/transport/observer"
)

var layerCycle = []string{observerproto.LayerOwnership, observerproto.LayerWeight, observerproto.LayerSpeed}

func main() {
	var (
		addr      = flag.String("addr", "127.0.0.1:8080", "server host:port")
		layer     = flag.String("layer", observerproto.LayerOwnership, "grid layer: ownership|weight|speed")
		gridEvery = flag.Int("grid_every", 0, "grid cadence in ticks (0 = server default)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[tui] ", log.LstdFlags|log.Lmicroseconds)

	boot, err := fetchBootstrap("http://" + *addr + observer.BootstrapPath)
	if err != nil {
		logger.Fatalf("bootstrap: %v", err)
	}
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+*addr+observer.WSPath, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if err := conn.WriteJSON(subscribeMsg(*layer, *gridEvery)); err != nil {
		logger.Fatalf("send SUBSCRIBE: %v", err)
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		logger.Fatalf("screen: %v", err)
	}
	if err := screen.Init(); err != nil {
		logger.Fatalf("screen init: %v", err)
	}

	st := newState(boot, *layer)
	readDone := make(chan error, 1)
	go func() {
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				readDone <- err
				return
			}
			if err := st.apply(msg); err != nil {
				st.setStatus(err.Error())
			}
		}
	}()

	events := make(chan tcell.Event, 16)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			events <- ev
		}
	}()

	runErr := loop(screen, conn, st, events, readDone, *gridEvery)
	screen.Fini()
	if runErr != nil {
		logger.Printf("disconnected: %v", runErr)
	}
}

func loop(screen tcell.Screen, conn *websocket.Conn, st *state, events <-chan tcell.Event, readDone <-chan error, gridEvery int) error {
	redraw := time.NewTicker(100 * time.Millisecond)
	defer redraw.Stop()
	for {
		select {
		case err := <-readDone:
			return err
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventResize:
				screen.Sync()
			case *tcell.EventKey:
				switch {
				case ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC || ev.Rune() == 'q':
					return nil
				case ev.Key() == tcell.KeyTab:
					next := nextLayer(st.snapshot().Layer)
					st.setLayer(next)
					if err := conn.WriteJSON(subscribeMsg(next, gridEvery)); err != nil {
						return err
					}
				}
			}
		case <-redraw.C:
			render(screen, st.snapshot())
			screen.Show()
		}
	}
}

func subscribeMsg(layer string, gridEvery int) observerproto.SubscribeMsg {
	return observerproto.SubscribeMsg{
		Type:            "SUBSCRIBE",
		ProtocolVersion: observerproto.Version,
		Layers:          []string{layer},
		GridEvery:       gridEvery,
	}
}

func nextLayer(cur string) string {
	for i, l := range layerCycle {
		if l == cur {
			return layerCycle[(i+1)%len(layerCycle)]
		}
	}
	return layerCycle[0]
}

func fetchBootstrap(url string) (observerproto.BootstrapResponse, error) {
	var boot observerproto.BootstrapResponse
	resp, err := http.Get(url)
	if err != nil {
		return boot, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return boot, fmt.Errorf("status %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(&boot); err != nil {
		return boot, err
	}
	if boot.ProtocolVersion != observerproto.Version {
		return boot, fmt.Errorf("protocol version %q, want %q", boot.ProtocolVersion, observerproto.Version)
	}
	return boot, nil
}
