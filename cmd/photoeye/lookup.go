package main

import (
	"strings"

	"github.com/spf13/cobra"
)

// NewRandomCommand prints a random location with imagery.
func NewRandomCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "random",
		Short: "Pick a random location that has Street View imagery",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := root.client()
			defer c.Close()

			loc, err := c.RandomLocation(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), loc)
		},
	}
}

// NewPlaceCommand names a coordinate, optionally with its nearest panorama.
func NewPlaceCommand(root *rootOptions) *cobra.Command {
	var (
		lat, lng float64
		nearest  bool
	)

	cmd := &cobra.Command{
		Use:   "place",
		Short: "Show the place name of a coordinate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := root.client()
			defer c.Close()

			if nearest {
				pano, err := c.NearestPanorama(cmd.Context(), lat, lng)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), pano)
			}
			loc, err := c.PlaceName(cmd.Context(), lat, lng)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), loc)
		},
	}

	cmd.Flags().Float64Var(&lat, "lat", 0, "Latitude")
	cmd.Flags().Float64Var(&lng, "lng", 0, "Longitude")
	cmd.Flags().BoolVar(&nearest, "nearest", false, "Show the nearest panorama instead")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lng")
	return cmd
}

// NewGeocodeCommand resolves an address.
func NewGeocodeCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "geocode <address>",
		Short: "Resolve an address to coordinates",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := root.client()
			defer c.Close()

			addr, err := c.Geocode(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), addr)
		},
	}
}
