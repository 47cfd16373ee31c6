// SPDX-License-Identifier: MIT
// Copyright (c) 2025 go-iecp5 contributors.

// Command server runs a minimal controlled station (RTU): one station at
// common address 1 with a handful of monitoring and command points,
// answering general interrogation, read, and clock-sync requests.
package main

import (
	"context"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/marrasen/go-iecp5/asdu"
	"github.com/marrasen/go-iecp5/cs104"
	"github.com/marrasen/go-iecp5/information"
	"github.com/marrasen/go-iecp5/point"
	"github.com/marrasen/go-iecp5/server"
	"github.com/marrasen/go-iecp5/station"
)

// handlerFunc adapts a plain function to asdu.Handler, letting the server
// be constructed before the Engine that will actually dispatch for it.
type handlerFunc func(asdu.Connect, asdu.Message) error

func (f handlerFunc) Handle(conn asdu.Connect, msg asdu.Message) error { return f(conn, msg) }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var engine *server.Engine
	srv := cs104.NewServer(handlerFunc(func(conn asdu.Connect, msg asdu.Message) error {
		return engine.Handle(conn, msg)
	}))
	engine = server.New(srv)

	st, err := station.New(1, point.RoleServer, engine, station.NewTimeZonePolicy(time.Local, false))
	if err != nil {
		log.Fatalf("station: %v", err)
	}
	engine.AddStation(st)

	measurement := point.New(st, 1, asdu.M_ME_NC_1, information.Information{})
	if err := st.AddPoint(measurement); err != nil {
		log.Fatalf("add point: %v", err)
	}
	measurement.SetReportInterval(5000)
	seedFloat(measurement, 0)

	breaker := point.New(st, 2, asdu.C_SC_NA_1, information.Information{})
	if err := st.AddPoint(breaker); err != nil {
		log.Fatalf("add point: %v", err)
	}
	breaker.SetCommandMode(point.SelectAndExecute)
	breaker.OnReceive(func(p *point.DataPoint, info information.Information) point.ResponseState {
		sco, _ := info.SingleCommand()
		log.Printf("breaker command received: %v", sco)
		return point.ResponseSuccess
	})

	engine.SetClockSyncHandler(func(remote net.Addr, t time.Time) server.ClockSyncResult {
		log.Printf("clock sync from %v: %v", remote, t)
		return server.ClockSyncAccepted
	})

	go engine.RunPeriodic(ctx, 50*time.Millisecond)
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		var n float32
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n += 0.5
				seedFloat(measurement, n)
				_ = measurement.Transmit(asdu.Spontaneous)
			}
		}
	}()

	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()

	if err := st.SignalInitialized(asdu.CauseOfInitial{Cause: asdu.COILocalPowerOn}); err != nil {
		log.Printf("signal initialized: %v", err)
	}

	log.Println("server listening on :2404")
	if err := srv.ListenAndServe(":2404"); err != nil && err != cs104.ErrServerClosed {
		log.Fatalf("serve: %v", err)
	}
}

func seedFloat(p *point.DataPoint, v float32) {
	info, err := information.NewShortFloat(v, asdu.QDSGood, nil, false, false)
	if err != nil {
		log.Fatalf("seed: %v", err)
	}
	p.SetInfo(info)
}
