package main

import (
	"encoding/json"
	"flag"
	"log"
	"math"
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/sbinet/npyio"
	"github.com/tarstars/particle_bart/golang/particle_bart/pgl"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

func decodeConfig(srcConfig string, out interface{}) {
	file, err := os.Open(srcConfig)
	pgl.HandleError(err)
	defer func() { pgl.HandleError(file.Close()) }()

	decoder := json.NewDecoder(file)
	pgl.HandleError(decoder.Decode(out))
}

type SampleConfig struct {
	FileNameX          string    `json:"filename_x"`
	FileNameY          string    `json:"filename_y"`
	FileNameModel      string    `json:"filename_model"`
	FileNamePrediction string    `json:"filename_prediction"`
	NumTrees           int       `json:"num_trees"`
	NumParticles       int       `json:"num_particles"`
	MaxStages          int       `json:"max_stages"`
	TuneSteps          int       `json:"tune_steps"`
	DrawSteps          int       `json:"draw_steps"`
	Alpha              float64   `json:"alpha"`
	K                  float64   `json:"k"`
	Response           string    `json:"response"`
	Sigma              float64   `json:"sigma"`
	SplitPrior         []float64 `json:"split_prior"`
	ThreadsNum         int       `json:"threads_num"`
	Seed               uint64    `json:"seed"`
}

//gaussianLogLik builds a likelihood over an independent Gaussian observation model.
//The sampler core never defines a likelihood; the model side supplies one, and for
//the standalone runs that model is this one.
func gaussianLogLik(y []float64, sigma float64) pgl.LogLikFunc {
	return func(prediction []float64) (float64, error) {
		total := -float64(len(prediction)) * math.Log(sigma)
		for i, p := range prediction {
			d := (y[i] - p) / sigma
			total -= 0.5 * d * d
		}
		return total, nil
	}
}

func rmse(y, prediction []float64) float64 {
	total := 0.0
	for i := range y {
		d := y[i] - prediction[i]
		total += d * d
	}
	return math.Sqrt(total / float64(len(y)))
}

func sample(srcConfig string) {
	var cfg SampleConfig
	decodeConfig(srcConfig, &cfg)

	data, err := pgl.ReadDMatrix(cfg.FileNameX, cfg.FileNameY)
	pgl.HandleError(err)
	y := data.ResponseValues()

	if cfg.MaxStages == 0 {
		cfg.MaxStages = pgl.DefaultMaxStages
	}
	if cfg.Alpha == 0 {
		cfg.Alpha = 0.95
	}
	if cfg.K == 0 {
		cfg.K = 2
	}
	if cfg.Response == "" {
		cfg.Response = "constant"
	}
	if cfg.Sigma == 0 {
		cfg.Sigma = stat.StdDev(y, nil)
	}

	response, err := pgl.ParseResponse(cfg.Response)
	pgl.HandleError(err)

	sampler, err := pgl.NewPGBart(pgl.SamplerParams{
		Data:         data,
		LogLik:       gaussianLogLik(y, cfg.Sigma),
		NumTrees:     cfg.NumTrees,
		NumParticles: cfg.NumParticles,
		MaxStages:    cfg.MaxStages,
		Alpha:        cfg.Alpha,
		K:            cfg.K,
		Response:     response,
		SplitPrior:   cfg.SplitPrior,
		ThreadsNum:   cfg.ThreadsNum,
		Seed:         cfg.Seed,
	})
	pgl.HandleError(err)

	var prediction []float64
	for step := 0; step < cfg.TuneSteps; step++ {
		prediction, _, err = sampler.Step()
		pgl.HandleError(err)
		log.Printf("tuning step %d, rmse %f\n", step+1, rmse(y, prediction))
	}
	sampler.SetTuning(false)
	for step := 0; step < cfg.DrawSteps; step++ {
		var stats pgl.StepStats
		prediction, stats, err = sampler.Step()
		pgl.HandleError(err)
		log.Printf("draw step %d, rmse %f, inclusion %v\n", step+1, rmse(y, prediction), stats.VariableInclusion)
	}

	if cfg.FileNameModel != "" {
		pgl.HandleError(sampler.Forest().Save(cfg.FileNameModel))
	}
	if cfg.FileNamePrediction != "" {
		dst, err := os.Create(cfg.FileNamePrediction)
		pgl.HandleError(err)
		defer func() { pgl.HandleError(dst.Close()) }()
		pgl.HandleError(npyio.Write(dst, mat.NewDense(len(prediction), 1, prediction)))
	}
}

type PredictConfig struct {
	FileNameX          string `json:"filename_x"`
	FileNameModel      string `json:"filename_model"`
	FileNamePrediction string `json:"filename_prediction"`
}

func predict(srcConfig string) {
	var cfg PredictConfig
	decodeConfig(srcConfig, &cfg)

	x := pgl.ReadNpy(cfg.FileNameX)
	forest, err := pgl.LoadForest(cfg.FileNameModel)
	pgl.HandleError(err)

	prediction := forest.PredictValue(x)
	dst, err := os.Create(cfg.FileNamePrediction)
	pgl.HandleError(err)
	defer func() { pgl.HandleError(dst.Close()) }()
	pgl.HandleError(npyio.Write(dst, mat.NewDense(len(prediction), 1, prediction)))
}

type GraphConfig struct {
	FileNameModel     string `json:"filename_model"`
	FigureType        string `json:"figure_type"`
	PicturesDirectory string `json:"pictures_directory"`
	DumpPrefix        string `json:"dump_prefix"`
}

func graph(srcConfig string) {
	var cfg GraphConfig
	decodeConfig(srcConfig, &cfg)

	forest, err := pgl.LoadForest(cfg.FileNameModel)
	pgl.HandleError(err)
	forest.RenderTrees(cfg.DumpPrefix, cfg.FigureType, cfg.PicturesDirectory)
}

func main() {
	runMode := flag.String("mode", "sample", "you can select either 'sample', 'predict' or 'graph' modes")
	config := flag.String("config", "bart_config.json", "a config file for the run of the program")
	memprofile := flag.String("memprofile", "", "write memory profile to `file`")

	flag.Parse()

	map[string]func(string){
		"sample":  sample,
		"predict": predict,
		"graph":   graph,
	}[*runMode](*config)

	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		pgl.HandleError(err)
		defer func() { pgl.HandleError(f.Close()) }()
		runtime.GC()
		if err := pprof.WriteHeapProfile(f); err != nil {
			log.Fatal("could not write memory profile: ", err)
		}
	}
}
