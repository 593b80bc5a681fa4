package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"heartlink/discovery"
	"heartlink/link"
	"heartlink/serial"
)

// Matches the board's display reset time plus a margin
const sequenceSpacing = 3500 * time.Millisecond

func main() {
	mode := flag.String("mode", "menu", "Mode: menu, sequence, or open")
	device := flag.String("device", "", "Serial device (default: discover)")
	baud := flag.Int("baud", link.DefaultBaudRate, "Baud rate")
	rounds := flag.Int("rounds", 5, "Like/skip rounds for sequence mode")
	verbose := flag.Bool("v", false, "Log link activity")
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	switch *mode {
	case "menu":
		menuTest(connect(*device, *baud, logger))
	case "sequence":
		m := connect(*device, *baud, logger)
		defer m.Close()
		sequenceTest(link.NewChannel(m), *rounds)
	case "open":
		openTest(*device, *baud)
	default:
		log.Fatal("Invalid mode. Use: menu, sequence, or open")
	}
}

func connect(device string, baud int, logger *slog.Logger) *link.Manager {
	if device != "" {
		fmt.Printf("Using specified port: %s\n", device)
	}
	fmt.Println("Attempting to connect to device...")

	m := link.NewManager(link.Config{Port: device, BaudRate: baud}, discovery.New(logger), logger)
	if !m.Connect() {
		fmt.Println("\nERROR: Could not connect to device")
		fmt.Println("\nTroubleshooting:")
		fmt.Println("1. Make sure the board is plugged in via USB")
		fmt.Println("2. Run heartlink -list-ports to see what the host detects")
		fmt.Println("3. Close any serial monitor holding the port")
		fmt.Println("4. Try specifying the port: -device COM3")
		os.Exit(1)
	}

	printStatus(m.Status())
	return m
}

func menuTest(m *link.Manager) {
	defer m.Close()
	ch := link.NewChannel(m)
	in := bufio.NewScanner(os.Stdin)

	for {
		fmt.Println("\nTest Menu:")
		fmt.Println("1. Send LIKE")
		fmt.Println("2. Send SKIP")
		fmt.Println("3. Test sequence (alternate like/skip 5 times)")
		fmt.Println("4. Check connection status")
		fmt.Println("5. Exit")
		fmt.Print("\nEnter your choice (1-5): ")

		if !in.Scan() {
			return
		}

		switch strings.TrimSpace(in.Text()) {
		case "1":
			send(ch, link.Like)
		case "2":
			send(ch, link.Skip)
		case "3":
			sequenceTest(ch, 5)
		case "4":
			printStatus(m.Status())
		case "5":
			fmt.Println("Disconnecting...")
			return
		default:
			fmt.Println("Invalid choice. Please enter 1-5.")
		}
	}
}

func sequenceTest(ch *link.Channel, rounds int) {
	fmt.Println("\nRunning test sequence...")
	for i := 0; i < rounds; i++ {
		fmt.Printf("\n  Round %d/%d:\n", i+1, rounds)
		for _, cmd := range []link.Command{link.Like, link.Skip} {
			send(ch, cmd)
			time.Sleep(sequenceSpacing)
		}
	}
	fmt.Println("\nTest sequence complete")
}

func send(ch *link.Channel, cmd link.Command) {
	if ch.Send(cmd) {
		fmt.Printf("  Sent %s (%q)\n", cmd, rune(cmd))
	} else {
		fmt.Printf("  Failed to send %s. Check connection.\n", cmd)
	}
}

func printStatus(s link.Snapshot) {
	port := s.PortName()
	if port == "" {
		port = "(none)"
	}
	fmt.Printf("  Connected: %t\n", s.Connected)
	fmt.Printf("  Port:      %s\n", port)
	fmt.Printf("  Baud rate: %d\n", s.BaudRate)
}

// openTest checks that the OS lets us open and close the port at all
func openTest(device string, baud int) {
	if device == "" {
		log.Fatal("open mode requires -device")
	}

	fmt.Printf("Attempting to open %s...\n", device)
	port, err := serial.Open(serial.PortConfig{
		Device:   device,
		BaudRate: baud,
		DataBits: 8,
		StopBits: 1,
		Parity:   "none",
	})
	if err != nil {
		fmt.Printf("FAILED: %v\n", err)
		fmt.Println("\nPossible solutions:")
		fmt.Println("1. Unplug and replug the USB cable")
		fmt.Println("2. Close any programs that might be using the port")
		fmt.Println("3. Check the OS device list for driver issues")
		os.Exit(1)
	}

	fmt.Printf("SUCCESS: opened %s\n", device)
	time.Sleep(2 * time.Second)
	if err := port.Close(); err != nil {
		log.Fatalf("Close failed: %v", err)
	}
	fmt.Println("Port closed successfully")
}
