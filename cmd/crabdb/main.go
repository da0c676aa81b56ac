// crabdb is a REPL over a single named B+-tree index, backed by a disk
// file of fixed-size pages. Run: go run ./cmd/crabdb -file demo.idx
//
// Grounded on the teacher's root main.go (bufio.Scanner REPL, "db> "
// prompt, EqualFold("exit")) and cmd/seed/main.go's flag/log.Fatalf
// bootstrap idiom, scoped down from a SQL front end to direct index
// operations since the query layer is out of core scope.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"crabdb/bplustree"
	"crabdb/bufferpool"
	"crabdb/comparator"
	"crabdb/headerpage"
	"crabdb/storage"
	"crabdb/txn"
)

func main() {
	file := flag.String("file", "crabdb.idx", "page file backing the index")
	index := flag.String("index", "default", "index name recorded in the header page")
	poolSize := flag.Int("pool", 64, "buffer pool frame capacity")
	flag.Parse()

	disk, err := storage.NewDiskManager(*file)
	if err != nil {
		log.Fatalf("open %s: %v", *file, err)
	}
	defer disk.Close()

	bp := bufferpool.New(*poolSize, disk)

	headerPage, err := bp.FetchPage(storage.HeaderPageID)
	if err != nil {
		log.Fatalf("fetch header page: %v", err)
	}
	header, err := headerpage.New(headerPage)
	if err != nil {
		log.Fatalf("open header table: %v", err)
	}
	defer header.Close()
	defer bp.FlushAll()
	defer bp.UnpinPage(storage.HeaderPageID, true)

	tree := bplustree.New[comparator.Key8](*index, bp, header, comparator.Key8Codec{})
	txns := txn.NewManager()

	fmt.Printf("crabdb: index %q on %s (pool=%d frames)\n", *index, *file, *poolSize)
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("crab> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.EqualFold(line, "exit") {
			break
		}
		runCommand(tree, txns, bp, header, line)
	}
	fmt.Println()
}

func runCommand(tree *bplustree.Tree[comparator.Key8], txns *txn.Manager, bp *bufferpool.Manager, header *headerpage.Table, line string) {
	fields := strings.Fields(line)
	cmd := fields[0]
	args := fields[1:]

	switch strings.ToLower(cmd) {
	case "put":
		if len(args) != 2 {
			fmt.Println("usage: put <key> <value>")
			return
		}
		key, value, err := parseKeyValue(args[0], args[1])
		if err != nil {
			fmt.Println(err)
			return
		}
		inserted, err := tree.Insert(key, value, txns.Begin())
		if err != nil {
			fmt.Println("error:", err)
			return
		}
		if !inserted {
			fmt.Println("duplicate key, not inserted")
			return
		}
		fmt.Println("ok")

	case "get":
		if len(args) != 1 {
			fmt.Println("usage: get <key>")
			return
		}
		key, err := parseKey(args[0])
		if err != nil {
			fmt.Println(err)
			return
		}
		value, found := tree.GetValue(key, txns.Begin())
		if !found {
			fmt.Println("not found")
			return
		}
		fmt.Println(value)

	case "del":
		if len(args) != 1 {
			fmt.Println("usage: del <key>")
			return
		}
		key, err := parseKey(args[0])
		if err != nil {
			fmt.Println(err)
			return
		}
		if err := tree.Remove(key, txns.Begin()); err != nil {
			fmt.Println("error:", err)
			return
		}
		fmt.Println("ok")

	case "scan":
		it, err := tree.Begin()
		if err != nil {
			fmt.Println("error:", err)
			return
		}
		defer it.Close()
		n := 0
		for !it.IsEnd() {
			fmt.Printf("%d -> %d\n", decodeKey8(it.Key()), it.Value())
			n++
			it.Next()
		}
		fmt.Printf("(%d entries)\n", n)

	case "stats":
		fmt.Println("buffer pool:", bp.Stats())
		m := header.Stats()
		if m != nil {
			fmt.Printf("header cache: %s hits, %s misses\n",
				humanize.Comma(int64(m.Hits())), humanize.Comma(int64(m.Misses())))
		}

	case "dump":
		if err := tree.Inspect(); err != nil {
			fmt.Println("error:", err)
		}

	default:
		fmt.Println("commands: put <k> <v> | get <k> | del <k> | scan | stats | dump | exit")
	}
}

func parseKey(s string) (comparator.Key8, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return comparator.Key8{}, fmt.Errorf("invalid key %q: %w", s, err)
	}
	return comparator.NewKey8FromInt64(v), nil
}

func parseKeyValue(ks, vs string) (comparator.Key8, int64, error) {
	key, err := parseKey(ks)
	if err != nil {
		return comparator.Key8{}, 0, err
	}
	value, err := strconv.ParseInt(vs, 10, 64)
	if err != nil {
		return comparator.Key8{}, 0, fmt.Errorf("invalid value %q: %w", vs, err)
	}
	return key, value, nil
}

// decodeKey8 reverses NewKey8FromInt64's sign-bit flip for display.
func decodeKey8(k comparator.Key8) int64 {
	var u uint64
	for i := 0; i < 8; i++ {
		u = u<<8 | uint64(k[i])
	}
	return int64(u ^ (1 << 63))
}
