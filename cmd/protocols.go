package cmd

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/netsim/netsim/sim/protocol"
)

// listProtocols writes every registered protocol with its description and,
// optionally, its default parameters.
func listProtocols(out io.Writer, withDefaults bool) error {
	for _, name := range protocol.Names() {
		f, err := protocol.Lookup(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%-12s %s\n", name, f.Description)
		if !withDefaults {
			continue
		}
		data, err := yaml.Marshal(f.Defaults())
		if err != nil {
			return fmt.Errorf("encoding %s defaults: %w", name, err)
		}
		fmt.Fprintf(out, "%s\n", indent(data))
	}
	return nil
}

func indent(data []byte) string {
	out := make([]byte, 0, len(data)+64)
	out = append(out, "    "...)
	for i, b := range data {
		out = append(out, b)
		if b == '\n' && i < len(data)-1 {
			out = append(out, "    "...)
		}
	}
	return string(out)
}
