package main

import "github.com/BurntSushi/toml"

// WorkloadSpec is one [[workload]] table in a boot manifest: a named
// demo program and the priority its main thread should start at.
type WorkloadSpec struct {
	Name     string `toml:"name"`
	Priority int    `toml:"priority"`
}

// Manifest is the boot manifest cmd.Boot loads via
// github.com/BurntSushi/toml, mirroring runsc/config's flag+file
// split (SPEC_FULL §2.3): the file supplies the workload list and
// default detect-deadlock mode, flags can override log level.
type Manifest struct {
	Workloads      []WorkloadSpec `toml:"workload"`
	DetectDeadlock bool           `toml:"detect_deadlock"`
}

// defaultManifest is used when no -manifest flag is given: one demo
// workload so `corekernel boot` does something observable out of the
// box.
func defaultManifest() *Manifest {
	return &Manifest{Workloads: []WorkloadSpec{{Name: "hello", Priority: 16}}}
}

func loadManifest(path string) (*Manifest, error) {
	if path == "" {
		return defaultManifest(), nil
	}
	var m Manifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
