// pmxport converts glTF character models into PMX 2.0 files.
package main

import (
	"fmt"
	"os"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "export", "x":
		err = cmdExport(args)
	case "inspect", "info":
		err = cmdInspect(args)
	case "version":
		fmt.Println("pmxport", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`pmxport - glTF to PMX model exporter

Usage:
  pmxport <command> [options]

Commands:
  export [options] <model.glb> [-o out.pmx]   Convert a model to PMX
  inspect [-dump] <file>                      Summarize a .pmx, .glb or .gltf file
  version                                     Print the version

MMD settings are read from <model>.pmx.yaml next to the model when present.
Run "pmxport export -h" for the export options.

Examples:
  pmxport export chara.glb
  pmxport export -scale 10 -sort-materials -o out/chara.pmx chara.gltf
  pmxport inspect -dump out/chara.pmx`)
}
