package display

import (
	"fmt"
	"strings"
)

func writeProgress(b *strings.Builder, p ProgressDoc) {
	fmt.Fprintf(b, "scanned frame %d: %d/%d", int(p.Frame)+1, p.Received, p.Total)
	if len(p.Missing) > 0 {
		missing := make([]string, 0, len(p.Missing))
		for _, idx := range p.Missing {
			missing = append(missing, fmt.Sprint(int(idx)+1))
		}
		fmt.Fprintf(b, " (missing %s)", strings.Join(missing, ", "))
	}
	b.WriteString("\n")
}

func writeAlert(b *strings.Builder, a AlertDoc) {
	fmt.Fprintf(b, "[%s] %s\n", a.Kind, a.Title)
	for _, line := range strings.Split(a.Message, "\n") {
		if line == "" {
			continue
		}
		fmt.Fprintf(b, "  %s\n", line)
	}
	if len(a.Actions) > 0 {
		fmt.Fprintf(b, "  actions: %s\n", strings.Join(a.Actions, " / "))
	}
}

func writeReview(b *strings.Builder, r ReviewDoc) {
	title := r.Kind
	if r.Network != "" {
		title += " on " + r.Network
	}
	fmt.Fprintf(b, "== %s\n", title)
	if r.Unsafe {
		b.WriteString("!! could not decode payload; signing this is unsafe\n")
	}
	if r.Sender != "" {
		if r.Account != "" {
			fmt.Fprintf(b, "from: %s (%s)\n", r.Sender, r.Account)
		} else {
			fmt.Fprintf(b, "from: %s\n", r.Sender)
		}
	}
	for i, call := range r.Calls {
		fmt.Fprintf(b, "call %d: ", i+1)
		writeCall(b, call, 1)
	}
	if env := r.Envelope; env != nil {
		fmt.Fprintf(b, "era: %s\nnonce: %s\ntip: %s\n", env.Era, env.Nonce, env.Tip)
		fmt.Fprintf(b, "spec: %d tx: %d\nblock: %s\n", env.SpecVersion, env.TxVersion, env.BlockHash)
	}
	if raw := r.Raw; raw != nil {
		fmt.Fprintf(b, "method: %s\n", raw.Method)
		if raw.Era != "" {
			fmt.Fprintf(b, "era: %s\nnonce: %s\ntip: %s\n", raw.Era, raw.Nonce, raw.Tip)
			fmt.Fprintf(b, "spec: %d tx: %d\n", raw.SpecVersion, raw.TxVersion)
		}
		if raw.Reason != "" {
			fmt.Fprintf(b, "reason: %s\n", raw.Reason)
		}
	}
	if r.Message != "" {
		if r.Hashed {
			fmt.Fprintf(b, "message hash: %s\n", r.Message)
		} else {
			fmt.Fprintf(b, "message: %s\n", r.Message)
		}
	}
	if eth := r.Ethereum; eth != nil {
		fmt.Fprintf(b, "to: %s\nvalue: %s\nfee: %s\n", eth.To, eth.Value, eth.Fee)
		fmt.Fprintf(b, "gas: %d @ %s wei\nnonce: %d\n", eth.Gas, eth.GasPrice, eth.Nonce)
		if eth.ChainID != "" {
			fmt.Fprintf(b, "chain: %s\n", eth.ChainID)
		}
		if eth.Data != "" {
			fmt.Fprintf(b, "data: %s\n", eth.Data)
		}
	}
	if r.Summary != "" {
		fmt.Fprintf(b, "summary: %s\n", r.Summary)
	}
}

func writeCall(b *strings.Builder, c CallDoc, depth int) {
	b.WriteString(c.Call)
	b.WriteString("\n")
	pad := strings.Repeat("  ", depth)
	for _, arg := range c.Args {
		switch {
		case arg.Call != nil:
			fmt.Fprintf(b, "%s%s: ", pad, arg.Name)
			writeCall(b, *arg.Call, depth+1)
		case arg.List != nil:
			fmt.Fprintf(b, "%s%s: [%s]\n", pad, arg.Name, strings.Join(arg.List, ", "))
		default:
			fmt.Fprintf(b, "%s%s: %s\n", pad, arg.Name, arg.Value)
		}
	}
}

func writeNetworks(b *strings.Builder, docs []NetworkDoc) {
	for _, n := range docs {
		meta := "no metadata"
		if n.Metadata > 0 {
			meta = fmt.Sprintf("metadata v%d", n.Metadata)
		}
		fmt.Fprintf(b, "%-9s %-12s %-20s %s\n", n.Protocol, n.PathID, n.Title, meta)
	}
}
