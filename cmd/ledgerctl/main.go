package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/pterm/pterm"

	"github.com/thanhnp/record-ledger/internal/ledger"
	"github.com/thanhnp/record-ledger/internal/models"
	"github.com/thanhnp/record-ledger/internal/storage"
)

const usage = `usage: ledgerctl <verify|dump|get> [flags]

  verify   check every stored block and report the first broken one
  dump     print the stored blocks as a table
  get      print one block, selected with -index or -hash

The database is opened read-only and is never created.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	cmd := os.Args[1]
	switch cmd {
	case "verify", "dump", "get":
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	dataPath := fs.String("data", "./data/pebble", "Pebble root directory (one database per ledger)")
	name := fs.String("ledger", "health", "Ledger name")
	linkRule := fs.String("link-rule", "previous_hash", "Chaining rule: previous_hash or legacy")
	width := fs.Int("width", 48, "Payload column width for dump")
	index := fs.Int64("index", -1, "Block index for get")
	hash := fs.String("hash", "", "Block hash for get")
	fs.Parse(os.Args[2:])

	rule, err := ledger.ParseLinkRule(*linkRule)
	if err != nil {
		pterm.Error.Println(err)
		os.Exit(2)
	}

	stores, err := storage.OpenLedgerStoresReadOnly(*dataPath, *name)
	if err != nil {
		pterm.Error.Printfln("Failed to open ledger %s: %v", *name, err)
		os.Exit(1)
	}

	var code int
	switch cmd {
	case "verify":
		code = verifyStore(*name, stores.BlockStore, rule)
	case "dump":
		code = dumpStore(stores.BlockStore, *width)
	case "get":
		code = get(stores.BlockStore, *index, *hash)
	}
	stores.Close()
	os.Exit(code)
}

func verifyStore(name string, store *storage.BlockStore, rule ledger.LinkRule) int {
	blocks, err := store.Load()
	if err != nil {
		pterm.Error.Printfln("Ledger %s is NOT valid: %v", name, err)
		return 1
	}
	return verify(name, blocks, rule)
}

// verify prints the verdict and returns the process exit code
func verify(name string, blocks []models.Block, rule ledger.LinkRule) int {
	res := ledger.ValidateChain(blocks, rule)
	if res.Valid {
		pterm.Success.Printfln("Ledger %s is valid (%d blocks, link rule %s)", name, res.Length, rule)
		return 0
	}
	pterm.Error.Printfln("Ledger %s is NOT valid: block %d: %s", name, res.FirstBadIndex, res.Reason)
	return 1
}

func dumpStore(store *storage.BlockStore, width int) int {
	blocks, err := store.Load()
	if err != nil {
		pterm.Error.Println(err)
		return 1
	}
	if err := dump(blocks, width); err != nil {
		pterm.Error.Println(err)
		return 1
	}
	return 0
}

func dump(blocks []models.Block, width int) error {
	data := pterm.TableData{{"Index", "Timestamp", "Previous", "Hash", "Payload"}}
	for _, b := range blocks {
		data = append(data, []string{
			strconv.FormatInt(b.Index, 10),
			ledger.FormatTimestamp(b.Timestamp),
			shorten(b.PreviousHash, 12),
			shorten(b.Hash, 12),
			shorten(string(b.Payload), width),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

var errNoSelector = errors.New("get needs exactly one of -index or -hash")

// lookup finds a block through the store's index and hash keys
func lookup(store *storage.BlockStore, index int64, hash string) (*models.Block, error) {
	switch {
	case (index >= 0) == (hash != ""):
		return nil, errNoSelector
	case hash != "":
		return store.GetByHash(hash)
	default:
		return store.GetByIndex(index)
	}
}

func get(store *storage.BlockStore, index int64, hash string) int {
	block, err := lookup(store, index, hash)
	if err != nil {
		pterm.Error.Println(err)
		if errors.Is(err, errNoSelector) {
			return 2
		}
		return 1
	}
	if block == nil {
		pterm.Warning.Println("No such block")
		return 1
	}

	data := pterm.TableData{
		{"Index", strconv.FormatInt(block.Index, 10)},
		{"Timestamp", ledger.FormatTimestamp(block.Timestamp)},
		{"Previous", block.PreviousHash},
		{"Hash", block.Hash},
		{"Payload", string(block.Payload)},
	}
	if err := pterm.DefaultTable.WithData(data).Render(); err != nil {
		pterm.Error.Println(err)
		return 1
	}
	return 0
}

// shorten cuts s to at most n runes, marking the cut with "..."
func shorten(s string, n int) string {
	if n <= 3 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
