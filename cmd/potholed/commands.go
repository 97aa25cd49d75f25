package main

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/UmarMaaz/pot-hole-detector/internal/api"
	"github.com/UmarMaaz/pot-hole-detector/internal/config"
	"github.com/UmarMaaz/pot-hole-detector/internal/vision"
)

var detectCmd = &cobra.Command{
	Use:   "detect <image>",
	Short: "Run one frame through the detection pipeline",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading image: %w", err)
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post("/api/v1/detect", api.DetectRequest{
			Image: base64.StdEncoding.EncodeToString(data),
		})
		if err != nil {
			return err
		}
		var out struct {
			Detections []api.DetectionResult `json:"detections"`
		}
		if err := decodeJSON(resp, &out); err != nil {
			return err
		}

		if len(out.Detections) == 0 {
			printStep("no detections")
			return nil
		}
		for _, d := range out.Detections {
			line := fmt.Sprintf("%-14s %-16s score=%.2f dist=%.1fm box=[%.2f %.2f %.2f %.2f]",
				d.Type, d.Label, d.Score, d.Distance,
				d.Box.YMin, d.Box.XMin, d.Box.YMax, d.Box.XMax)
			if d.MatchScore > 0 {
				line += fmt.Sprintf(" match=%.2f", d.MatchScore)
			}
			fmt.Println(line)
		}
		return nil
	},
}

var trainRect string

var trainCmd = &cobra.Command{
	Use:   "train <image>",
	Short: "Learn the marked region of a frame as a hazard",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rect, err := parseRect(trainRect)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading image: %w", err)
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post("/api/v1/train", api.TrainRequest{
			Image: base64.StdEncoding.EncodeToString(data),
			Rect:  rect,
		})
		if err != nil {
			return err
		}
		var sample api.SampleSummary
		if err := decodeJSON(resp, &sample); err != nil {
			return err
		}
		printSuccess("learned sample %s (%d-dim embedding)", sample.ID, sample.Dim)
		return nil
	},
}

// parseRect parses "ymin,xmin,ymax,xmax" in normalized [0,1] coordinates.
func parseRect(s string) (vision.Rect, error) {
	if s == "" {
		return vision.Rect{}, fmt.Errorf("--rect is required (ymin,xmin,ymax,xmax)")
	}
	var r vision.Rect
	n, err := fmt.Sscanf(strings.ReplaceAll(s, " ", ""), "%f,%f,%f,%f",
		&r.YMin, &r.XMin, &r.YMax, &r.XMax)
	if err != nil || n != 4 {
		return vision.Rect{}, fmt.Errorf("invalid --rect %q: want ymin,xmin,ymax,xmax", s)
	}
	return r, nil
}

var samplesCmd = &cobra.Command{
	Use:   "samples",
	Short: "Manage the learned memory bank",
}

var samplesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List learned samples",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get("/api/v1/samples")
		if err != nil {
			return err
		}
		var out []api.SampleSummary
		if err := decodeJSON(resp, &out); err != nil {
			return err
		}

		if len(out) == 0 {
			printStep("memory bank is empty")
			return nil
		}
		for _, s := range out {
			fmt.Printf("%s  dim=%d  learned=%s\n", s.ID, s.Dim, s.CreatedAt.Local().Format("2006-01-02 15:04"))
		}
		return nil
	},
}

var samplesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Forget a learned sample",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.delete("/api/v1/samples/" + args[0])
		if err != nil {
			return err
		}
		resp.Body.Close()
		printSuccess("sample %s removed", args[0])
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage potholed configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		for _, info := range config.ShowAll(cfg) {
			val := info.Value
			if val == "" {
				val = colorize(colorYellow, "(unset)")
			}
			fmt.Printf("  %-24s %-28s %s\n", info.Key, val, colorize(colorCyan, info.EnvVar))
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.SetKey(args[0], args[1]); err != nil {
			return fmt.Errorf("%w\nvalid keys: %s", err, strings.Join(config.ValidKeys(), ", "))
		}
		printSuccess("%s updated", args[0])
		return nil
	},
}

func init() {
	trainCmd.Flags().StringVar(&trainRect, "rect", "", "normalized region as ymin,xmin,ymax,xmax")

	samplesCmd.AddCommand(samplesListCmd)
	samplesCmd.AddCommand(samplesDeleteCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
