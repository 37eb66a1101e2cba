package plugin

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"

	"github.com/andrei-cloud/go_assetpool/pkg/errorcodes"
	"github.com/spf13/cobra"
)

var commandName = regexp.MustCompile(`^[A-Z]{2}$`)

var guestTemplate = template.Must(template.New("guest").Parse(`// Command {{.Name}} is a WASM asset{{if .Desc}}: {{.Desc}}{{end}}.
// Build with: tinygo build -o {{.Output}} -target=wasi ./{{.Dir}}
package main

import (
	"github.com/andrei-cloud/go_assetpool/pkg/errorcodes"
	"github.com/andrei-cloud/go_assetpool/pkg/guest"
)

//export Alloc
func Alloc(size uint32) uint32 {
	return guest.Alloc(size)
}

//export Free
func Free(ptr uint32) {
	guest.Free(ptr)
}

//export Execute
func Execute(ptr, length uint32) uint64 {
	input := append([]byte(nil), guest.ReadBytes(ptr, length)...)
	guest.ResetAllocator()

	if len(input) == 0 {
		return guest.WriteError("{{.Name}}", errorcodes.ErrMalformedRequest)
	}

	return guest.WriteError("{{.Name}}", errorcodes.ErrExecutionFailed)
}

func main() {}
`))

type scaffold struct {
	Name   string
	Desc   string
	Dir    string
	Output string
}

// NewCreateCommand creates the create command.
func NewCreateCommand() *cobra.Command {
	var (
		desc      string
		dir       string
		assetsDir string
		build     bool
	)

	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Scaffold a new asset plugin",
		Long: `Create the guest source of a new two-letter asset command under the
commands directory and optionally build it to <assets>/<NAME>.wasm with TinyGo.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := scaffold{
				Name:   strings.ToUpper(args[0]),
				Desc:   desc,
				Dir:    filepath.Join(dir, strings.ToUpper(args[0])),
				Output: filepath.Join(assetsDir, strings.ToUpper(args[0])+".wasm"),
			}
			path, err := createPlugin(s)
			if err != nil {
				return err
			}
			cmd.Printf("Created %s\n", path)

			if !build {
				return nil
			}
			if err := runTinyGo(s); err != nil {
				return fmt.Errorf("failed to build plugin: %w", err)
			}
			cmd.Printf("Built %s\n", s.Output)

			return nil
		},
	}

	cmd.Flags().StringVarP(&desc, "desc", "d", "", "plugin description")
	cmd.Flags().StringVar(&dir, "dir", "commands", "directory holding plugin sources")
	cmd.Flags().StringVar(&assetsDir, "assets", "assets", "directory the built module is written to")
	cmd.Flags().BoolVar(&build, "build", false, "build the module with tinygo")

	return cmd
}

func createPlugin(s scaffold) (string, error) {
	if !commandName.MatchString(s.Name) {
		return "", fmt.Errorf("%w: command name %q must be two letters", errorcodes.ErrInvalidArgument, s.Name)
	}

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create plugin directory: %w", err)
	}

	path := filepath.Join(s.Dir, "main.go")
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("%w: %s already exists", errorcodes.ErrInvalidArgument, path)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create plugin source: %w", err)
	}
	defer f.Close()

	if err := guestTemplate.Execute(f, s); err != nil {
		return "", fmt.Errorf("failed to write plugin source: %w", err)
	}

	return path, nil
}

func runTinyGo(s scaffold) error {
	if err := os.MkdirAll(filepath.Dir(s.Output), 0o755); err != nil {
		return err
	}

	build := exec.Command("tinygo", "build", "-o", s.Output, "-target=wasi", "./"+filepath.ToSlash(s.Dir))
	build.Stdout = os.Stdout
	build.Stderr = os.Stderr

	return build.Run()
}
