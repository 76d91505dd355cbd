// Command replay-client subscribes to a replay server, reassembles the
// frame stream, and reports per-type statistics.
//
// Usage:
//
//	replay-client [-verbose] [host[:port]]
package main

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"sort"
	"time"

	"github.com/luxfi/replay/pkg/itch"
	"github.com/luxfi/replay/pkg/stream"
)

type stats struct {
	totalMessages uint64
	totalBytes    uint64
	byType        [256]uint64
	start         time.Time
}

func (s *stats) record(frame []byte) {
	s.totalMessages++
	s.totalBytes += uint64(len(frame))
	s.byType[frame[0]]++
}

func (s *stats) print() {
	elapsed := time.Since(s.start).Seconds()
	if elapsed <= 0 {
		elapsed = 1e-9
	}

	fmt.Println("\n=== Statistics ===")
	fmt.Printf("Total Messages: %d\n", s.totalMessages)
	fmt.Printf("Total Bytes: %.2f MB\n", float64(s.totalBytes)/(1<<20))
	fmt.Printf("Elapsed Time: %.2f seconds\n", elapsed)
	fmt.Printf("Message Rate: %.0f msg/sec\n", float64(s.totalMessages)/elapsed)
	fmt.Printf("Throughput: %.2f MB/sec\n", float64(s.totalBytes)/(1<<20)/elapsed)

	if s.totalMessages == 0 {
		return
	}
	fmt.Println("\nMessage Type Breakdown:")
	var tags []int
	for tag, n := range s.byType {
		if n > 0 {
			tags = append(tags, tag)
		}
	}
	sort.Ints(tags)
	for _, tag := range tags {
		fmt.Printf("  [%c] %-27s : %10d (%.1f%%)\n",
			byte(tag), itch.TypeName(byte(tag)), s.byType[tag],
			100*float64(s.byType[tag])/float64(s.totalMessages))
	}
}

func main() {
	verbose := flag.Bool("verbose", false, "Decode and print every message")
	flag.Parse()

	addr := "127.0.0.1:9999"
	if args := flag.Args(); len(args) > 0 {
		addr = args[0]
		if _, _, err := net.SplitHostPort(addr); err != nil {
			addr = net.JoinHostPort(addr, "9999")
		}
	}

	fmt.Printf("Connecting to %s...\n", addr)
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()
	fmt.Println("Connected!")

	st := &stats{start: time.Now()}
	r := stream.NewReassembler(stream.DefaultBufferSize)

	for {
		frame, err := r.Next()
		if err == nil {
			st.record(frame)
			if *verbose {
				if msg, derr := itch.Decode(frame); derr == nil {
					fmt.Println(msg)
				}
			}
			if st.totalMessages%100000 == 0 {
				fmt.Printf("Received %d messages (%.2f MB)\n",
					st.totalMessages, float64(st.totalBytes)/(1<<20))
			}
			continue
		}

		var unk *stream.UnknownTypeError
		if errors.As(err, &unk) {
			fmt.Fprintf(os.Stderr, "%v\n", unk)
			r.Resync()
			continue
		}

		n, ferr := r.Fill(conn)
		if n == 0 {
			if ferr != nil && !errors.Is(ferr, net.ErrClosed) {
				fmt.Println("Server disconnected")
			}
			break
		}
	}

	st.print()
}
