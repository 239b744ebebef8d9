package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/e1z0/mediareader/pkg/mediareader"
)

var rootCmd = &cobra.Command{
	Use:          "mediareader",
	Short:        "Random-access audio/video frame reader",
	SilenceUsage: true,
}

var infoCmd = &cobra.Command{
	Use:   "info <file>",
	Short: "Print the streams and derived attributes of a media file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := mediareader.Open(args[0])
		if err != nil {
			return err
		}
		defer r.Close()

		r.DisplayInfo()
		return nil
	},
}

var (
	frameOut       string
	frameMaxWidth  int
	frameMaxHeight int
)

var frameCmd = &cobra.Command{
	Use:   "frame <file> <number>",
	Short: "Decode a single frame and save its image as a PNG",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var number int
		if _, err := fmt.Sscanf(args[1], "%d", &number); err != nil {
			return fmt.Errorf("invalid frame number %q: %w", args[1], err)
		}

		r := mediareader.New(args[0])
		r.MaxWidth = frameMaxWidth
		r.MaxHeight = frameMaxHeight
		if err := r.Open(); err != nil {
			return err
		}
		defer r.Close()

		f, err := r.GetFrame(number)
		if err != nil {
			return err
		}

		out := frameOut
		if out == "" {
			out = fmt.Sprintf("frame-%d.png", number)
		}
		if err := f.SaveImage(out, 1.0); err != nil {
			return err
		}

		fmt.Printf("wrote %s\n", out)
		return nil
	},
}

func init() {
	frameCmd.Flags().StringVarP(&frameOut, "out", "o", "", "output PNG path (default frame-<n>.png)")
	frameCmd.Flags().IntVar(&frameMaxWidth, "max-width", 0, "downscale to fit this width, preserving aspect ratio (only with --max-height, and only when both are smaller than the source)")
	frameCmd.Flags().IntVar(&frameMaxHeight, "max-height", 0, "downscale to fit this height, preserving aspect ratio (only with --max-width, and only when both are smaller than the source)")

	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(frameCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
