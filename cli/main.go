// Package main provides a simple CLI client for the playback sync broker.
// It connects as a device, streams now-playing updates, and can send
// remote-play commands to other devices.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/Rooney-Eli/gorilla-groove/internal/domain"
	"github.com/Rooney-Eli/gorilla-groove/internal/protocol"
)

func main() {
	addr := flag.String("addr", "localhost:8080", "broker address")
	token := flag.String("token", "", "login token")
	device := flag.String("device", "cli", "device identifier")
	flag.Parse()

	if *token == "" {
		log.Fatal("a -token is required; obtain one via POST /api/authentication/login")
	}

	u := url.URL{
		Scheme:   "ws",
		Host:     *addr,
		Path:     "/api/socket",
		RawQuery: "deviceIdentifier=" + url.QueryEscape(*device),
	}
	header := http.Header{"Authorization": []string{"Bearer " + *token}}

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), header)
	if err != nil {
		log.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()
	fmt.Printf("Connected to %s as device %q\n", *addr, *device)

	done := make(chan struct{})
	go readLoop(conn, done)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	go func() {
		<-interrupt
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		os.Exit(0)
	}()

	printHelp()
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
		msg, err := buildMessage(line)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}
		data, err := protocol.Encode(msg)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Fatalf("write failed: %v", err)
		}
	}
	<-done
}

// readLoop prints every broadcast the broker pushes at us.
func readLoop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			log.Printf("connection closed: %v", err)
			os.Exit(0)
		}
		msg, err := protocol.DecodeResponse(data)
		if err != nil {
			log.Printf("could not decode server message: %v", err)
			continue
		}
		printMessage(msg)
	}
}

func printMessage(msg protocol.Message) {
	switch m := msg.(type) {
	case *protocol.NowListeningBroadcast:
		track := "nothing"
		if m.TrackData != nil {
			if m.TrackData.IsPrivate {
				track = "(private track)"
			} else if m.TrackData.Name != nil && m.TrackData.Artist != nil {
				track = fmt.Sprintf("%s - %s", *m.TrackData.Artist, *m.TrackData.Name)
			}
		}
		fmt.Printf("[now playing] user %d on %s: %s\n", m.UserID, m.DeviceName, track)
	case *protocol.RemotePlayDelivery:
		fmt.Printf("[remote play] action=%s tracks=%d\n", m.RemotePlayAction, len(m.Tracks))
	case *protocol.ErrorResponse:
		fmt.Printf("[error] %s: %s\n", m.Code, m.Message)
	default:
		fmt.Printf("[%s message]\n", msg.Kind())
	}
}

func buildMessage(line string) (protocol.Message, error) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "play":
		if len(fields) != 2 {
			return nil, fmt.Errorf("usage: play <trackId>")
		}
		trackID, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad track id %q", fields[1])
		}
		playing := true
		return &protocol.NowListeningRequest{
			MessageType: protocol.TypeNowPlaying,
			TrackID:     &trackID,
			IsPlaying:   &playing,
		}, nil
	case "pause":
		playing := false
		return &protocol.NowListeningRequest{
			MessageType: protocol.TypeNowPlaying,
			IsPlaying:   &playing,
		}, nil
	case "seek":
		if len(fields) != 2 {
			return nil, fmt.Errorf("usage: seek <seconds>")
		}
		seconds, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("bad position %q", fields[1])
		}
		return &protocol.NowListeningRequest{
			MessageType: protocol.TypeNowPlaying,
			TimePlayed:  &seconds,
		}, nil
	case "volume":
		if len(fields) != 2 {
			return nil, fmt.Errorf("usage: volume <0..1>")
		}
		volume, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("bad volume %q", fields[1])
		}
		return &protocol.NowListeningRequest{
			MessageType: protocol.TypeNowPlaying,
			Volume:      &volume,
		}, nil
	case "remote":
		if len(fields) < 3 {
			return nil, fmt.Errorf("usage: remote <targetDeviceId> <action> [trackId,trackId,...]")
		}
		targetID, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad device id %q", fields[1])
		}
		req := &protocol.RemotePlayRequest{
			MessageType:      protocol.TypeRemotePlay,
			TargetDeviceID:   targetID,
			RemotePlayAction: domain.RemotePlayAction(fields[2]),
		}
		if len(fields) > 3 {
			for _, part := range strings.Split(fields[3], ",") {
				trackID, err := strconv.ParseInt(part, 10, 64)
				if err != nil {
					return nil, fmt.Errorf("bad track id %q", part)
				}
				req.TrackIDs = append(req.TrackIDs, trackID)
			}
		}
		return req, nil
	default:
		return nil, fmt.Errorf("unknown command %q", fields[0])
	}
}

func printHelp() {
	fmt.Println("commands:")
	fmt.Println("  play <trackId>                           start playing a track")
	fmt.Println("  pause                                    pause playback")
	fmt.Println("  seek <seconds>                           report playback position")
	fmt.Println("  volume <0..1>                            report volume")
	fmt.Println("  remote <deviceId> <action> [id,id,...]   command another device")
	fmt.Println("  quit")
}
