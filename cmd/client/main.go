// SPDX-License-Identifier: MIT
// Copyright (c) 2025 go-iecp5 contributors.

// Command client dials a single controlled station, brings the link up
// with a general interrogation on activation, and logs each newly
// discovered station and point, end-of-initialization notices and
// connection state changes.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/marrasen/go-iecp5/asdu"
	"github.com/marrasen/go-iecp5/client"
	"github.com/marrasen/go-iecp5/connection"
	"github.com/marrasen/go-iecp5/cs104"
	"github.com/marrasen/go-iecp5/station"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := "127.0.0.1:2404"
	if len(os.Args) > 1 {
		addr = os.Args[1]
	}

	engine := client.New()
	engine.SetOnNewStation(func(conn *connection.Connection, ca asdu.CommonAddr) {
		log.Printf("discovered station ca=%d", ca)
	})
	engine.SetOnNewPoint(func(s *station.Station, ioa asdu.InfoObjAddr, typ asdu.TypeID) {
		log.Printf("discovered point ca=%d ioa=%d type=%s", s.CommonAddress(), ioa, typ)
	})
	engine.SetOnStationInitialized(func(s *station.Station, coi asdu.CauseOfInitial) {
		log.Printf("station %d signalled end-of-initialization: %+v", s.CommonAddress(), coi)
	})

	opt := cs104.NewOption()
	if err := opt.AddRemoteServer(addr); err != nil {
		log.Fatalf("remote server: %v", err)
	}
	cli := cs104.NewClient(engine, opt)

	conn := connection.New(cli, connection.INIT_ALL)
	entry := engine.AddConnection(conn)
	_ = entry

	conn.SetOnStateChange(func(s connection.State) {
		log.Printf("connection state -> %s", s)
	})

	go engine.RunTimers(ctx, 50*time.Millisecond)
	conn.Connect(ctx)

	<-ctx.Done()
	conn.Disconnect()
}
