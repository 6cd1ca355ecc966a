package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vmihailenco/msgpack/v5"

	"overlay-planner/internal/config"
	"overlay-planner/internal/geometry"
	"overlay-planner/internal/pathfinding"
)

func main() {
	if err := RootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type app struct {
	configFile string
	cfg        *config.Config
	planner    *pathfinding.Planner
}

func RootCmd() *cobra.Command {
	a := &app{}
	c := &cobra.Command{
		Use:          "overlay-planner",
		Short:        "terrain overlay path planner",
		SilenceUsage: true,
	}
	c.PersistentFlags().StringVar(&a.configFile, "config", "world.hjson", "config file")
	c.AddCommand(ServeCmd(a), RouteCmd(a), SwarmCmd(a), InspectCmd(a))
	return c
}

// load reads the config and builds the planner.
func (a *app) load() error {
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}
	cfg.ApplyLog()
	svc, err := cfg.Build()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.planner = pathfinding.NewPlanner(svc, cfg.NewManager())
	return nil
}

func ServeCmd(a *app) *cobra.Command {
	var addr string
	c := &cobra.Command{
		Use:   "serve",
		Short: "run the HTTP planner server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(); err != nil {
				return err
			}
			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			srv := newServer(a.planner, a.cfg.Pathfinding.Radius)

			log.Println("========================================")
			log.Println("🚀 Overlay Planner Server")
			log.Println("========================================")
			log.Printf("Server starting on %s\n", addr)
			log.Println("")
			log.Println("Endpoints:")
			log.Println("  POST   /route           - Compute a roadmap between two points")
			log.Println("  POST   /swarm           - Compute roadmaps for many agents to one point")
			log.Println("  POST   /holes           - Add a world-space hole")
			log.Println("  DELETE /holes?id=       - Remove a hole")
			log.Println("  GET    /network/lines   - Get network edges for visualization")
			log.Println("  GET    /health          - Check server status")
			log.Println("")
			log.Println("CORS enabled for all origins")
			log.Println("========================================")

			return http.ListenAndServe(addr, srv.routes())
		},
	}
	c.Flags().StringVar(&addr, "addr", "", "listen address, overrides the config")
	return c
}

func RouteCmd(a *app) *cobra.Command {
	var from, to, format string
	var radius float64
	c := &cobra.Command{
		Use:   "route",
		Short: "find a roadmap between two world points",
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := parsePoint(from)
			if err != nil {
				return err
			}
			dst, err := parsePoint(to)
			if err != nil {
				return err
			}
			if err := a.load(); err != nil {
				return err
			}
			if !cmd.Flags().Changed("radius") {
				radius = a.cfg.Pathfinding.Radius
			}
			rm, found, err := a.planner.Route(radius, src, dst)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("no path from %v to %v", src, dst)
			}
			return writeOutput(cmd.OutOrStdout(), format, rm)
		},
	}
	c.Flags().StringVar(&from, "from", "", "source point x,y[,z]")
	c.Flags().StringVar(&to, "to", "", "destination point x,y[,z]")
	c.Flags().Float64Var(&radius, "radius", 0, "agent radius")
	c.Flags().StringVar(&format, "format", "json", "output format: json or msgpack")
	_ = c.MarkFlagRequired("from")
	_ = c.MarkFlagRequired("to")
	return c
}

func SwarmCmd(a *app) *cobra.Command {
	var from []string
	var to, format string
	var radius float64
	c := &cobra.Command{
		Use:   "swarm",
		Short: "find roadmaps for many agents sharing a destination",
		RunE: func(cmd *cobra.Command, args []string) error {
			dst, err := parsePoint(to)
			if err != nil {
				return err
			}
			sources := make([]geometry.DoubleVector3, 0, len(from))
			for _, f := range from {
				p, err := parsePoint(f)
				if err != nil {
					return err
				}
				sources = append(sources, p)
			}
			if err := a.load(); err != nil {
				return err
			}
			if !cmd.Flags().Changed("radius") {
				radius = a.cfg.Pathfinding.Radius
			}
			maps, err := a.planner.Swarm(radius, dst, sources)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), format, maps)
		},
	}
	c.Flags().StringArrayVar(&from, "from", nil, "agent point x,y[,z], repeatable")
	c.Flags().StringVar(&to, "to", "", "destination point x,y[,z]")
	c.Flags().Float64Var(&radius, "radius", 0, "agent radius")
	c.Flags().StringVar(&format, "format", "json", "output format: json or msgpack")
	_ = c.MarkFlagRequired("to")
	return c
}

func InspectCmd(a *app) *cobra.Command {
	var radius float64
	c := &cobra.Command{
		Use:   "inspect",
		Short: "compile the overlay network and print its size",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(); err != nil {
				return err
			}
			if !cmd.Flags().Changed("radius") {
				radius = a.cfg.Pathfinding.Radius
			}
			net, err := a.planner.Network(radius)
			if err != nil {
				return err
			}
			s := net.Stats()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "radius:      %.2f\n", radius)
			fmt.Fprintf(out, "nodes:       %d\n", s.Nodes)
			fmt.Fprintf(out, "edge groups: %d\n", s.EdgeGroups)
			fmt.Fprintf(out, "crossovers:  %d\n", s.Crossovers)
			fmt.Fprintf(out, "waypoints:   %d\n", s.Waypoints)
			fmt.Fprintf(out, "triangles:   %d\n", s.Triangles)
			return nil
		},
	}
	c.Flags().Float64Var(&radius, "radius", 0, "agent radius")
	return c
}

// parsePoint reads "x,y" or "x,y,z".
func parsePoint(s string) (geometry.DoubleVector3, error) {
	parts := strings.Split(s, ",")
	if len(parts) < 2 || len(parts) > 3 {
		return geometry.DoubleVector3{}, fmt.Errorf("point %q: want x,y or x,y,z", s)
	}
	var v [3]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geometry.DoubleVector3{}, fmt.Errorf("point %q: %w", s, err)
		}
		v[i] = f
	}
	return geometry.DoubleVector3{X: v[0], Y: v[1], Z: v[2]}, nil
}

func writeOutput(w io.Writer, format string, v interface{}) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "msgpack":
		return msgpack.NewEncoder(w).Encode(v)
	}
	return fmt.Errorf("unknown format %q", format)
}
