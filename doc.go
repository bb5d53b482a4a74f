/*
Package pulse is the session control core of a stimulation device.

A device session is driven by discrete intents coming from a keypad, a web
client or a test: digits typed into the frequency, intensity and duration
fields, start and stop, pause, soft reduction. The core validates the
entered values, ramps the hardware smoothly between output levels, counts
the session down and records every operation in a ledger.

# Architecture

The module follows a hexagonal layout. The core never talks to hardware or
storage directly; it depends on the ports in pkg/ports:

  - HardwareGateway drives the stimulator output.
  - SessionLedger records operations and in-session events.
  - SnapshotStore keeps the last state of each device.
  - DistributedLocker serializes device ownership across replicas.

pkg/adapters provides in-memory, file, Redis and external-driver
implementations of those ports, plus three hosts: an HTTP server with
Server-Sent Events, a newline-delimited JSON pipe and an MCP server.

# Usage

Build assembles a device manager from a configuration:

	stack, err := pulse.Build(config.Default())
	if err != nil {
		log.Fatal(err)
	}
	defer stack.Close(ctx)

	device, _ := stack.Manager.Open(ctx, "bench-1")
	state, events, err := device.Handle(ctx, domain.AppendDigit{Digit: "4"})

Every call to Handle returns the new immutable snapshot of the device and
the events raised while handling the intent. Subscribe streams the same
snapshots as they change, including changes caused by ramp and countdown
ticks.
*/
package pulse
