// Command worldmap renders a top-down map of a configured drift world to a
// netpbm image, either as a height map (PGM) or a material map (PPM). It
// reads the same TOML config as a full engine, creating a default one when
// missing, so the rendered map matches what the engine would stream.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/dw-engine/driftworld/engine"
	"github.com/dw-engine/driftworld/engine/world"
	"github.com/dw-engine/driftworld/engine/world/chunk"
)

func main() {
	config := flag.String("config", "config.toml", "path to the engine config, created when missing")
	out := flag.String("out", "", "output image path, defaults to map.pgm or map.ppm depending on mode")
	radius := flag.Int("chunks", 8, "radius of the rendered square around the origin, in chunks")
	mode := flag.String("mode", "height", "what to render: height (PGM) or material (PPM)")
	flag.Parse()

	log := slog.Default()
	if err := run(*config, *out, *radius, *mode, log); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
}

func run(configPath, out string, radius int, mode string, log *slog.Logger) error {
	if radius < 0 {
		return fmt.Errorf("chunk radius must not be negative")
	}
	uc, err := engine.ReadConfig(configPath, log)
	if err != nil {
		return err
	}
	conf, err := uc.Config(log)
	if err != nil {
		return err
	}
	conf.DisableDebris = true
	e := conf.New()
	defer e.Close()

	synth := e.Synthesizer()
	n := synth.ChunkSize()

	// Adjacent chunks share their edge vertices, so each chunk contributes
	// n-1 pixels per axis and the last row and column come from the final
	// chunk alone.
	side := 2*radius + 1
	dim := side*(n-1) + 1
	heights := make([]float32, dim*dim)
	materials := make([]chunk.Material, dim*dim)

	c := chunk.New(n)
	for cz := -radius; cz <= radius; cz++ {
		for cx := -radius; cx <= radius; cx++ {
			synth.GenerateChunk(world.ChunkPos{int32(cx), int32(cz)}, c)
			ox, oz := (cx+radius)*(n-1), (cz+radius)*(n-1)
			for z := range n {
				for x := range n {
					h, _ := c.HeightAt(x, z)
					m, _ := c.MaterialAt(x, z)
					i := (oz+z)*dim + ox + x
					heights[i] = h
					materials[i] = m
				}
			}
		}
	}

	switch mode {
	case "height":
		if out == "" {
			out = "map.pgm"
		}
		err = writeHeightMap(out, dim, heights, uc.Terrain.MinHeight, uc.Terrain.MaxHeight)
	case "material":
		if out == "" {
			out = "map.ppm"
		}
		err = writeMaterialMap(out, dim, materials)
	default:
		return fmt.Errorf("unknown mode %q, want height or material", mode)
	}
	if err != nil {
		return err
	}
	log.Info("Rendered map.", "path", out, "size", dim, "chunks", side*side)
	return nil
}

// writeHeightMap writes an 8-bit binary PGM with heights normalised to the
// configured height range.
func writeHeightMap(path string, dim int, heights []float32, minHeight, maxHeight float64) error {
	if maxHeight <= minHeight {
		minHeight, maxHeight = -8, 24
	}
	span := maxHeight - minHeight

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %v: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "P5\n%d %d\n255\n", dim, dim)
	for _, h := range heights {
		t := (float64(h) - minHeight) / span
		if t < 0 {
			t = 0
		} else if t > 1 {
			t = 1
		}
		if err := w.WriteByte(byte(t * 255)); err != nil {
			return fmt.Errorf("write %v: %w", path, err)
		}
	}
	return w.Flush()
}

var materialColours = [...][3]byte{
	chunk.MaterialUnknown: {0, 0, 0},
	chunk.MaterialWater:   {38, 70, 145},
	chunk.MaterialSand:    {214, 200, 145},
	chunk.MaterialGrass:   {88, 141, 67},
	chunk.MaterialDirt:    {121, 85, 58},
	chunk.MaterialStone:   {127, 127, 127},
	chunk.MaterialSnow:    {240, 244, 248},
}

// writeMaterialMap writes a binary PPM with one colour per material.
func writeMaterialMap(path string, dim int, materials []chunk.Material) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %v: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "P6\n%d %d\n255\n", dim, dim)
	for _, m := range materials {
		colour := materialColours[chunk.MaterialUnknown]
		if int(m) < len(materialColours) {
			colour = materialColours[m]
		}
		if _, err := w.Write(colour[:]); err != nil {
			return fmt.Errorf("write %v: %w", path, err)
		}
	}
	return w.Flush()
}
