// Command spiralclient drives the PIR client core from the shell: key
// generation, query construction, response decoding, and database
// preprocessing. It takes no flag library, matching the plain
// os.Args-dispatch style of the reference preprocess_db binary.
package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/Pro7ech/spiralpir/client"
	"github.com/Pro7ech/spiralpir/params"
	"github.com/Pro7ech/spiralpir/ring"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "keygen":
		err = runKeygen(os.Args[2:])
	case "query":
		err = runQuery(os.Args[2:])
	case "decode":
		err = runDecode(os.Args[2:])
	case "preprocess":
		err = runPreprocess(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "spiralclient:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: spiralclient <keygen|query|decode|preprocess> ...")
	fmt.Fprintln(os.Stderr, "  keygen     <params.json> <out_pub_params> <out_client_state>")
	fmt.Fprintln(os.Stderr, "  query      <params.json> <client_state> <idx_target> <out_query>")
	fmt.Fprintln(os.Stderr, "  decode     <params.json> <client_state> <response> <out_bytes>")
	fmt.Fprintln(os.Stderr, "  preprocess <in_db_path> <out_db_path> [target_num_log2 item_size_bytes]")
}

// clientState is the minimal persisted state a keygen invocation needs to
// hand to a later query/decode invocation: the client's secret material,
// recreated by replaying a fixed private seed through a deterministic
// private source. This keeps the CLI stateless between invocations without
// inventing a key-file format the spec doesn't define.
type clientState struct {
	PrivateSeedHex string `json:"private_seed_hex"`
}

func loadParams(path string) (*params.Params, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading params file: %w", err)
	}
	return params.FromJSON(data)
}

func runKeygen(args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("keygen requires <params.json> <out_pub_params> <out_client_state>")
	}
	p, err := loadParams(args[0])
	if err != nil {
		return err
	}

	var seed [32]byte
	if err := ring.PrivateSource().ReadFull(seed[:]); err != nil {
		return fmt.Errorf("drawing private seed: %w", err)
	}
	seededSource := ring.NewSource(&seedReader{seed: seed})

	c, err := client.Init(p, seededSource)
	if err != nil {
		return fmt.Errorf("initializing client: %w", err)
	}
	pp, err := c.GenerateKeys()
	if err != nil {
		return fmt.Errorf("generating keys: %w", err)
	}

	if err := os.WriteFile(args[1], pp.Serialize(), 0o644); err != nil {
		return fmt.Errorf("writing public parameters: %w", err)
	}

	state := clientState{PrivateSeedHex: hex.EncodeToString(seed[:])}
	stateBytes, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return os.WriteFile(args[2], stateBytes, 0o644)
}

func runQuery(args []string) error {
	if len(args) != 4 {
		return fmt.Errorf("query requires <params.json> <client_state> <idx_target> <out_query>")
	}
	p, err := loadParams(args[0])
	if err != nil {
		return err
	}
	c, err := restoreClient(p, args[1])
	if err != nil {
		return err
	}

	var idx int
	if _, err := fmt.Sscanf(args[2], "%d", &idx); err != nil {
		return fmt.Errorf("parsing idx_target: %w", err)
	}

	q, err := c.GenerateQuery(idx)
	if err != nil {
		return fmt.Errorf("generating query: %w", err)
	}
	return os.WriteFile(args[3], q.Serialize(), 0o644)
}

func runDecode(args []string) error {
	if len(args) != 4 {
		return fmt.Errorf("decode requires <params.json> <client_state> <response> <out_bytes>")
	}
	p, err := loadParams(args[0])
	if err != nil {
		return err
	}
	c, err := restoreClient(p, args[1])
	if err != nil {
		return err
	}

	raw, err := os.ReadFile(args[2])
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	out, err := c.DecodeResponse(raw)
	if err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return os.WriteFile(args[3], out, 0o644)
}

// runPreprocess bit-packs a raw database file into the PtModulus-wide
// symbol stream the server expects, mirroring preprocess_db.rs's
// load_db_from_seek/write-out shape, adapted to operate purely in terms of
// this module's Params rather than a server package out of this client's
// scope.
func runPreprocess(args []string) error {
	if len(args) != 2 && len(args) != 4 {
		return fmt.Errorf("preprocess requires <in_db_path> <out_db_path> [target_num_log2 item_size_bytes]")
	}

	p, err := params.New(params.Params{
		N:          2,
		PtModulus:  256,
		Q2Bits:     30,
		TConv:      4,
		TExpLeft:   4,
		TExpRight:  4,
		TGsw:       4,
		Instances:  1,
		DbDim1:     8,
		DbItemSize: 100000,
	})
	if err != nil {
		return fmt.Errorf("building default db parameters: %w", err)
	}
	if len(args) == 4 {
		var targetNumLog2, itemSizeBytes int
		if _, err := fmt.Sscanf(args[2], "%d", &targetNumLog2); err != nil {
			return fmt.Errorf("parsing target_num_log2: %w", err)
		}
		if _, err := fmt.Sscanf(args[3], "%d", &itemSizeBytes); err != nil {
			return fmt.Errorf("parsing item_size_bytes: %w", err)
		}
		p.DbDim1 = targetNumLog2
		p.DbItemSize = itemSizeBytes
	}

	in, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading input db: %w", err)
	}

	pBits := p.PBits()
	var out []byte
	bitOffset := 0
	for _, b := range in {
		out = ring.WriteArbitraryBits(out, bitOffset, pBits, uint64(b)&((1<<uint(pBits))-1))
		bitOffset += pBits
	}

	fmt.Fprintln(os.Stderr, "Done preprocessing. Outputting...")
	return os.WriteFile(args[1], out, 0o644)
}

func restoreClient(p *params.Params, stateFile string) (*client.Client, error) {
	raw, err := os.ReadFile(stateFile)
	if err != nil {
		return nil, fmt.Errorf("reading client state: %w", err)
	}
	var state clientState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("parsing client state: %w", err)
	}
	seedBytes, err := hex.DecodeString(state.PrivateSeedHex)
	if err != nil {
		return nil, fmt.Errorf("decoding private seed: %w", err)
	}
	if len(seedBytes) != 32 {
		return nil, fmt.Errorf("expected 32-byte private seed, got %d", len(seedBytes))
	}
	var seed [32]byte
	copy(seed[:], seedBytes)
	c, err := client.Init(p, ring.NewSource(&seedReader{seed: seed}))
	if err != nil {
		return nil, err
	}
	if _, err := c.GenerateKeys(); err != nil {
		return nil, fmt.Errorf("replaying key generation: %w", err)
	}
	return c, nil
}

// seedReader expands a 32-byte seed into a deterministic infinite stream by
// cycling it, so a persisted keygen seed can replay the exact same
// private-randomness draws across separate CLI invocations.
type seedReader struct {
	seed [32]byte
	pos  int
}

func (s *seedReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = s.seed[s.pos%len(s.seed)]
		s.pos++
	}
	return len(p), nil
}

