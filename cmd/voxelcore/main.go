package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/sirupsen/logrus"
)

var (
	argTuning   = flag.String("tuning", "", "tuning file path")
	argBlocks   = flag.String("blocks", "assets/blocks.yaml", "block definitions file")
	argModels   = flag.String("models", "", "block model directory")
	argTextures = flag.String("textures", "", "texture directory (<key>.png)")
	argTerrain  = flag.String("terrain", "", "terrain JSON file ({\"x,y,z\": id})")
	argImport   = flag.String("import", "", "voxel snapshot to load instead of terrain")
	argExport   = flag.String("export", "", "write a voxel snapshot to this path")
	argView     = flag.String("view", "0,0,0", "viewpoint x,y,z")
	argRay      = flag.String("ray", "", "cast a ray from x,y,z along dx,dy,dz")
	argVerbose  = flag.Bool("v", false, "debug logging")
)

type options struct {
	TuningFile  string
	BlocksFile  string
	ModelsDir   string
	TexturesDir string
	Terrain     string
	Import      string
	Export      string
	View        mgl32.Vec3
	Ray         *ray
}

type ray struct {
	From, Dir mgl32.Vec3
}

func main() {
	flag.Parse()

	log := logrus.New()
	log.Formatter = &logrus.TextFormatter{ForceColors: true}
	if *argVerbose {
		log.SetLevel(logrus.DebugLevel)
	}

	opts, err := parseOptions()
	if err != nil {
		fmt.Fprintln(os.Stderr, color.New(color.FgRed).Sprintf("voxelcore: %v", err))
		flag.Usage()
		os.Exit(2)
	}
	if err := run(opts, log, color.Output); err != nil {
		fmt.Fprintln(os.Stderr, color.New(color.FgRed).Sprintf("voxelcore: %v", err))
		os.Exit(1)
	}
}

func parseOptions() (options, error) {
	o := options{
		TuningFile:  *argTuning,
		BlocksFile:  *argBlocks,
		ModelsDir:   *argModels,
		TexturesDir: *argTextures,
		Terrain:     *argTerrain,
		Import:      *argImport,
		Export:      *argExport,
	}
	if o.Terrain != "" && o.Import != "" {
		return o, fmt.Errorf("-terrain and -import are exclusive")
	}
	v, err := parseFloats(*argView, 3)
	if err != nil {
		return o, fmt.Errorf("-view: %w", err)
	}
	o.View = mgl32.Vec3{v[0], v[1], v[2]}
	if *argRay != "" {
		r, err := parseFloats(*argRay, 6)
		if err != nil {
			return o, fmt.Errorf("-ray: %w", err)
		}
		o.Ray = &ray{From: mgl32.Vec3{r[0], r[1], r[2]}, Dir: mgl32.Vec3{r[3], r[4], r[5]}}
	}
	return o, nil
}

// parseFloats splits a comma separated list of exactly n numbers.
func parseFloats(s string, n int) ([]float32, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("want %d comma separated numbers, got %q", n, s)
	}
	out := make([]float32, n)
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, err
		}
		out[i] = float32(f)
	}
	return out, nil
}
