package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/mrjoshuak/go-stereo/aggregation"
	"github.com/mrjoshuak/go-stereo/raster"
)

// fileConfig is the pipeline configuration file.
type fileConfig struct {
	Image struct {
		ValidPixels int16 `json:"valid_pixels"`
		NoData      int16 `json:"no_data"`
	} `json:"image"`
	Input struct {
		NoDataLeft  noData `json:"nodata_left"`
		NoDataRight noData `json:"nodata_right"`
		LeftMask    string `json:"left_mask"`
		RightMask   string `json:"right_mask"`
	} `json:"input"`
	Aggregation json.RawMessage `json:"aggregation"`
}

// noData accepts a number or one of the strings "NaN", "inf" and "-inf".
type noData float64

func (n *noData) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		switch strings.ToLower(s) {
		case "nan":
			*n = noData(math.NaN())
		case "inf", "+inf":
			*n = noData(math.Inf(1))
		case "-inf":
			*n = noData(math.Inf(-1))
		default:
			return fmt.Errorf("invalid no-data value %q", s)
		}
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("invalid no-data value %s", b)
	}
	*n = noData(f)
	return nil
}

func defaultFileConfig() *fileConfig {
	c := &fileConfig{}
	c.Image.ValidPixels = raster.DefaultValidPixels
	c.Image.NoData = raster.DefaultNoDataMask
	c.Input.NoDataLeft = noData(raster.DefaultNoDataValue)
	c.Input.NoDataRight = noData(raster.DefaultNoDataValue)
	return c
}

// loadConfig reads path, or returns the defaults when path is empty.
func loadConfig(path string) (*fileConfig, aggregation.Config, error) {
	c := defaultFileConfig()
	if path == "" {
		return c, aggregation.DefaultConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, aggregation.Config{}, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(c); err != nil {
		return nil, aggregation.Config{}, fmt.Errorf("%s: %w", path, err)
	}
	if len(c.Aggregation) == 0 || string(c.Aggregation) == "null" {
		return c, aggregation.DefaultConfig(), nil
	}
	agg, err := aggregation.ParseConfig(c.Aggregation)
	if err != nil {
		return nil, aggregation.Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return c, agg, nil
}

func (c *fileConfig) readOptions(nd noData, mask string) raster.ReadOptions {
	return raster.ReadOptions{
		NoData:      float64(nd),
		MaskPath:    mask,
		ValidPixels: c.Image.ValidPixels,
		NoDataCode:  c.Image.NoData,
	}
}

func (c *fileConfig) leftOptions() raster.ReadOptions {
	return c.readOptions(c.Input.NoDataLeft, c.Input.LeftMask)
}

func (c *fileConfig) rightOptions() raster.ReadOptions {
	return c.readOptions(c.Input.NoDataRight, c.Input.RightMask)
}
