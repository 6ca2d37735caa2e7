// timerinfo prints the resource descriptors of a logical timer backend so
// the IRQ lines and register windows can be provisioned ahead of time,
// for example while assembling a system image.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tinyrange/hwtimer/ltimer"
	"github.com/tinyrange/hwtimer/platform"
)

type regionManifest struct {
	Base      string `yaml:"base" json:"base"`
	Length    string `yaml:"length" json:"length"`
	Cacheable bool   `yaml:"cacheable" json:"cacheable"`
}

type manifest struct {
	Platform string           `yaml:"platform" json:"platform"`
	IRQs     []uint32         `yaml:"irqs" json:"irqs"`
	Regions  []regionManifest `yaml:"regions,omitempty" json:"regions,omitempty"`
}

func buildManifest(name string, res ltimer.Resources) manifest {
	m := manifest{Platform: name}
	for _, irq := range res.IRQs {
		m.IRQs = append(m.IRQs, irq.Number)
	}
	for _, region := range res.Regions {
		m.Regions = append(m.Regions, regionManifest{
			Base:      fmt.Sprintf("%#x", region.Base),
			Length:    fmt.Sprintf("%#x", region.Length),
			Cacheable: region.Cacheable,
		})
	}
	return m
}

func main() {
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)

	name := fs.String("platform", "", "Platform backend to describe")
	list := fs.Bool("list", false, "List known platform backends")
	asJSON := fs.Bool("json", false, "Emit JSON instead of YAML")

	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(1)
	}

	if *list {
		for _, n := range platform.Names() {
			fmt.Println(n)
		}
		return
	}

	if *name == "" {
		fs.Usage()
		os.Exit(1)
	}

	p, err := platform.Lookup(*name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	m := buildManifest(p.Name, p.Describe())
	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(m); err != nil {
			fmt.Fprintf(os.Stderr, "failed to encode manifest: %v\n", err)
			os.Exit(1)
		}
		return
	}

	enc := yaml.NewEncoder(os.Stdout)
	if err := enc.Encode(m); err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode manifest: %v\n", err)
		os.Exit(1)
	}
	_ = enc.Close()
}
