package launcher

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"
	"github.com/naoina/toml"

	"github.com/rony4d/go-opera-crowdsale/crowdsale"
	"github.com/rony4d/go-opera-crowdsale/integration"
	"github.com/rony4d/go-opera-crowdsale/inter"
	"github.com/rony4d/go-opera-crowdsale/sale"
)

// Script is a sequence of sale operations read from a TOML file:
//
//	[[Step]]
//	Op = "whitelist"
//	Caller = "admin"
//	Ids = ["contributor:0", "contributor:1"]
//
//	[[Step]]
//	Op = "contribute"
//	At = "90s"
//	Sender = "contributor:0"
//	Value = "1.5 ether"
//
//	[[Step]]
//	Op = "contribute"
//	At = "end"
//	Sender = "contributor:1"
//	Value = "100"
//	Expect = "NOT_OPEN"
type Script struct {
	Step []Step
}

// Step is one operation of a Script.
//
// At positions the clock before the step runs: a duration relative to the
// sale start ("0s", "90s", "-1s") or to its end ("end", "end-1s"). An empty
// At leaves the clock where the previous step put it.
//
// Identities are "admin", "wallet", "sale", "contributor:N" or a hex address.
// Values are wei unless suffixed with a unit ("2 gwei", "1.5 ether").
//
// Expect names the rejection reason the step must fail with. A step without
// Expect must succeed.
type Step struct {
	Op     string   // whitelist, contribute or status
	At     string   `toml:",omitempty"`
	Caller string   `toml:",omitempty"`
	Ids    []string `toml:",omitempty"`
	Remove bool     `toml:",omitempty"`
	Sender string   `toml:",omitempty"`
	Value  string   `toml:",omitempty"`
	Expect string   `toml:",omitempty"`
}

// LoadScript reads a replay script.
func LoadScript(path string) (*Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	script := new(Script)
	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(script)
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(path + ", " + err.Error())
	}
	if err != nil {
		return nil, err
	}
	return script, nil
}

// replayer executes a script against an assembled sale.
type replayer struct {
	s     *integration.Sale
	cfg   crowdsale.Config
	clock *sale.ManualClock
	out   io.Writer
}

// Run executes every step in order and stops at the first step whose outcome
// differs from its expectation.
func (r *replayer) Run(script *Script) error {
	for i, step := range script.Step {
		if err := r.step(step); err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, step.Op, err)
		}
	}
	return nil
}

func (r *replayer) step(step Step) error {
	if step.At != "" {
		at, err := r.parseAt(step.At)
		if err != nil {
			return err
		}
		r.clock.Set(at)
	}

	var err error
	switch step.Op {
	case "whitelist":
		err = r.whitelist(step)
	case "contribute":
		err = r.contribute(step)
	case "status":
		printStatus(r.out, r.cfg.Name, r.s.Engine.Status())
		return nil
	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}
	return r.expect(step, err)
}

func (r *replayer) whitelist(step Step) error {
	caller, err := r.parseIdentity(step.Caller)
	if err != nil {
		return err
	}
	ids := make([]common.Address, len(step.Ids))
	for i, raw := range step.Ids {
		if ids[i], err = r.parseIdentity(raw); err != nil {
			return err
		}
	}
	if err := r.s.Engine.WhitelistAddress(caller, ids, !step.Remove); err != nil {
		return err
	}
	sign := "+"
	if step.Remove {
		sign = "-"
	}
	fmt.Fprintf(r.out, "whitelist %s%d total=%d\n", sign, len(ids), r.s.Engine.TotalWhitelisted())
	return nil
}

func (r *replayer) contribute(step Step) error {
	sender, err := r.parseIdentity(step.Sender)
	if err != nil {
		return err
	}
	value, err := parseValue(step.Value)
	if err != nil {
		return err
	}
	receipt, err := r.s.Contribute(sender, value)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "%s bonus=%s\n", receipt, crowdsale.Multiplier(receipt.Multiplier))
	return nil
}

// expect reconciles an operation outcome with the step expectation. Reasoned
// rejections are printed; anything else aborts the replay.
func (r *replayer) expect(step Step, err error) error {
	reason, ok := sale.ReasonOf(err)
	if err != nil && !ok {
		return err
	}
	if err != nil {
		fmt.Fprintf(r.out, "rejected %s\n", err)
	}
	switch {
	case step.Expect == "" && err != nil:
		return err
	case step.Expect != "" && err == nil:
		return fmt.Errorf("expected %s, operation succeeded", step.Expect)
	case step.Expect != "" && string(reason) != step.Expect:
		return fmt.Errorf("expected %s, got %s", step.Expect, reason)
	}
	return nil
}

func (r *replayer) parseAt(s string) (inter.Timestamp, error) {
	base := r.cfg.StartTime
	if strings.HasPrefix(s, "end") {
		base = r.cfg.EndTime
		s = strings.TrimPrefix(s, "end")
	}
	if s == "" {
		return base, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("bad time offset: %w", err)
	}
	return base.Add(d), nil
}

func (r *replayer) parseIdentity(s string) (common.Address, error) {
	switch s {
	case "admin":
		return r.cfg.Admin, nil
	case "wallet":
		return r.cfg.Wallet, nil
	case "sale":
		return r.cfg.Sale, nil
	case "":
		return common.Address{}, errors.New("missing identity")
	}
	if n := strings.TrimPrefix(s, "contributor:"); n != s {
		i, err := strconv.Atoi(n)
		if err != nil || i < 0 {
			return common.Address{}, fmt.Errorf("bad contributor index %q", n)
		}
		return integration.Contributor(i), nil
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("unknown identity %q", s)
	}
	return common.HexToAddress(s), nil
}

var units = map[string]*big.Int{
	"wei":   big.NewInt(params.Wei),
	"gwei":  big.NewInt(params.GWei),
	"ether": big.NewInt(params.Ether),
}

// parseValue reads "100", "2 gwei" or "1.5 ether" into wei. Fractions must
// resolve to a whole number of wei.
func parseValue(s string) (*big.Int, error) {
	fields := strings.Fields(s)
	unit := units["wei"]
	switch len(fields) {
	case 1:
	case 2:
		var ok bool
		if unit, ok = units[strings.ToLower(fields[1])]; !ok {
			return nil, fmt.Errorf("unknown unit %q", fields[1])
		}
	default:
		return nil, fmt.Errorf("bad value %q", s)
	}
	amount, ok := new(big.Rat).SetString(fields[0])
	if !ok {
		return nil, fmt.Errorf("bad value %q", s)
	}
	amount.Mul(amount, new(big.Rat).SetInt(unit))
	if !amount.IsInt() {
		return nil, fmt.Errorf("value %q is not a whole number of wei", s)
	}
	return new(big.Int).Set(amount.Num()), nil
}

func printStatus(w io.Writer, name string, st sale.Status) {
	fmt.Fprintf(w, "sale         %s\n", name)
	fmt.Fprintf(w, "phase        %s\n", st.Phase)
	fmt.Fprintf(w, "raised       %s / %s wei\n", st.Raised, st.Cap)
	fmt.Fprintf(w, "remaining    %s wei\n", st.Remaining)
	fmt.Fprintf(w, "whitelisted  %d\n", st.Whitelisted)
	fmt.Fprintf(w, "contributors %d\n", st.Contributors)
	fmt.Fprintf(w, "receipts     %d\n", st.Receipts)
	fmt.Fprintf(w, "sale tokens  %s\n", st.SaleTokens)
}
