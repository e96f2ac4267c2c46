package client

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func requireFlags(cmd *cobra.Command, names ...string) {
	for _, name := range names {
		_ = cmd.MarkFlagRequired(name)
	}
}

func floatParams(cmd *cobra.Command, q url.Values, names ...string) {
	for _, name := range names {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			q.Set(strings.ReplaceAll(name, "-", "_"), f.Value.String())
		}
	}
}

// RadiusCmd creates the radius command.
func RadiusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "radius",
		Short: "Listings within a radius, nearest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			floatParams(cmd, q, "lat", "lng", "radius-km")
			pageQuery(cmd.Flags(), q)
			return runSearch(cmd, "/geo/radius", q)
		},
	}

	cmd.Flags().Float64("lat", 0, "Center latitude")
	cmd.Flags().Float64("lng", 0, "Center longitude")
	cmd.Flags().Float64("radius-km", 0, "Radius in km")
	addPageFlags(cmd)
	requireFlags(cmd, "lat", "lng", "radius-km")

	return cmd
}

func addBoxFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("ne-lat", 0, "North-east latitude")
	cmd.Flags().Float64("ne-lng", 0, "North-east longitude")
	cmd.Flags().Float64("sw-lat", 0, "South-west latitude")
	cmd.Flags().Float64("sw-lng", 0, "South-west longitude")
	requireFlags(cmd, "ne-lat", "ne-lng", "sw-lat", "sw-lng")
}

// BoundingBoxCmd creates the bbox command.
func BoundingBoxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bbox",
		Short: "Listings inside a bounding box",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			floatParams(cmd, q, "ne-lat", "ne-lng", "sw-lat", "sw-lng")
			pageQuery(cmd.Flags(), q)
			return runSearch(cmd, "/geo/bbox", q)
		},
	}

	addBoxFlags(cmd)
	addPageFlags(cmd)

	return cmd
}

// ClustersCmd creates the clusters command.
func ClustersCmd() *cobra.Command {
	var zoom int

	cmd := &cobra.Command{
		Use:   "clusters",
		Short: "Map clusters for a bounding box at a zoom level",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			floatParams(cmd, q, "ne-lat", "ne-lng", "sw-lat", "sw-lng")
			q.Set("zoom", strconv.Itoa(zoom))

			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			resp, err := api.Get(cmd.Context(), "/geo/clusters", q)
			if err != nil {
				return fmt.Errorf("clusters failed: %w", err)
			}
			if jsonOutput(cmd) {
				return printJSON(cmd.OutOrStdout(), resp.Data)
			}
			clusters, err := decode[[]Cluster](resp)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(*clusters) == 0 {
				fmt.Fprintln(w, "No listings in this area.")
				return nil
			}
			for _, c := range *clusters {
				fmt.Fprintf(w, "(%.5f, %.5f)  %d listings  avg %.0f  [%.0f - %.0f]\n",
					c.Lat, c.Lng, c.Count, c.AvgPrice, c.MinPrice, c.MaxPrice)
			}
			return nil
		},
	}

	addBoxFlags(cmd)
	cmd.Flags().IntVar(&zoom, "zoom", 0, "Map zoom level")
	requireFlags(cmd, "zoom")

	return cmd
}

// DistanceCmd creates the distance command.
func DistanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "distance",
		Short: "Great-circle distance between two points",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			floatParams(cmd, q, "from-lat", "from-lng", "to-lat", "to-lng")

			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			resp, err := api.Get(cmd.Context(), "/geo/distance", q)
			if err != nil {
				return fmt.Errorf("distance failed: %w", err)
			}
			if jsonOutput(cmd) {
				return printJSON(cmd.OutOrStdout(), resp.Data)
			}
			d, err := decode[Distance](resp)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%.2f km\n", d.DistanceKm)
			return nil
		},
	}

	cmd.Flags().Float64("from-lat", 0, "Origin latitude")
	cmd.Flags().Float64("from-lng", 0, "Origin longitude")
	cmd.Flags().Float64("to-lat", 0, "Destination latitude")
	cmd.Flags().Float64("to-lng", 0, "Destination longitude")
	requireFlags(cmd, "from-lat", "from-lng", "to-lat", "to-lng")

	return cmd
}

// RouteCmd creates the route command.
func RouteCmd() *cobra.Command {
	var (
		waypoints []string
		bufferKm  float64
	)

	cmd := &cobra.Command{
		Use:   "route",
		Short: "Listings within a buffer of a route",
		Long: `Finds listings within --buffer-km of any waypoint.

  plotsearch route --waypoint 41.71,44.78 --waypoint 41.64,41.63 --buffer-km 5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			points := make([]Point, 0, len(waypoints))
			for _, raw := range waypoints {
				p, err := parsePoint(raw)
				if err != nil {
					return err
				}
				points = append(points, p)
			}

			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			resp, err := api.Post(cmd.Context(), "/geo/route", map[string]any{
				"waypoints": points,
				"buffer_km": bufferKm,
			})
			if err != nil {
				return fmt.Errorf("route search failed: %w", err)
			}
			if jsonOutput(cmd) {
				return printJSON(cmd.OutOrStdout(), resp.Data)
			}
			result, err := decode[RouteResult](resp)
			if err != nil {
				return err
			}
			if result.Count == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No listings along this route.")
				return nil
			}
			printProperties(cmd.OutOrStdout(), result.Items)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&waypoints, "waypoint", nil, "Waypoint as lat,lng (repeatable)")
	cmd.Flags().Float64Var(&bufferKm, "buffer-km", 0, "Buffer around each waypoint in km")
	requireFlags(cmd, "waypoint", "buffer-km")

	return cmd
}

func parsePoint(raw string) (Point, error) {
	lat, lng, ok := strings.Cut(raw, ",")
	if !ok {
		return Point{}, fmt.Errorf("invalid waypoint %q: expected lat,lng", raw)
	}
	la, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return Point{}, fmt.Errorf("invalid waypoint %q: %w", raw, err)
	}
	ln, err := strconv.ParseFloat(strings.TrimSpace(lng), 64)
	if err != nil {
		return Point{}, fmt.Errorf("invalid waypoint %q: %w", raw, err)
	}
	return Point{Lat: la, Lng: ln}, nil
}
