package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/vinhtt98/bitblt-hdr/internal/capture"
)

var monitorsFormat string

var monitorsCmd = &cobra.Command{
	Use:   "monitors",
	Short: "List the displays the engine composites",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		descs, err := s.engine.Monitors()
		if err != nil {
			return err
		}
		return printMonitors(os.Stdout, descs, monitorsFormat)
	},
}

func init() {
	monitorsCmd.Flags().StringVar(&monitorsFormat, "format", "text", "output format: text or yaml")
}

type monitorView struct {
	Name       string `yaml:"name"`
	X          int    `yaml:"x"`
	Y          int    `yaml:"y"`
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	Rotation   int    `yaml:"rotation"`
	ColorSpace string `yaml:"colorSpace"`
	HDR        bool   `yaml:"hdr"`
}

func viewOf(d capture.Descriptor) monitorView {
	return monitorView{
		Name:       d.Name,
		X:          d.Bounds.Min.X,
		Y:          d.Bounds.Min.Y,
		Width:      d.Bounds.Dx(),
		Height:     d.Bounds.Dy(),
		Rotation:   int(d.Rotation),
		ColorSpace: d.ColorSpace.String(),
		HDR:        d.ColorSpace.HDR(),
	}
}

func printMonitors(w io.Writer, descs []capture.Descriptor, format string) error {
	views := make([]monitorView, len(descs))
	for i, d := range descs {
		views[i] = viewOf(d)
	}
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(map[string]any{"monitors": views}); err != nil {
			return err
		}
		return enc.Close()
	case "text", "":
		if len(views) == 0 {
			fmt.Fprintln(w, "No displays attached to the desktop.")
			return nil
		}
		for _, v := range views {
			fmt.Fprintf(w, "%-14s %5d,%-5d %5dx%-5d rot %3d  %s\n",
				v.Name, v.X, v.Y, v.Width, v.Height, v.Rotation, v.ColorSpace)
		}
		return nil
	}
	return fmt.Errorf("unknown format %q (use text or yaml)", format)
}
