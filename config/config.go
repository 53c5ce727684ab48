package config

import (
	"os"
	"strings"

	mx "github.com/milosgajdos/matrix"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	filter "github.com/vse-go/go-filter"
	"github.com/vse-go/go-filter/kalman"
	"github.com/vse-go/go-filter/matrix"
	"github.com/vse-go/go-filter/model"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment variables overriding configuration
const EnvPrefix = "VSE"

const (
	// Position measures planar position
	Position = "position"
	// RangeBearing measures range and bearing from the sensor position
	RangeBearing = "range_bearing"
)

// DefaultRange is the distance from the sensor of the default initial position of range-bearing runs
const DefaultRange = 10.0

// Log configures logging
type Log struct {
	// Level is log level
	Level string `mapstructure:"level" yaml:"level"`
	// Dev enables development logging
	Dev bool `mapstructure:"dev" yaml:"dev"`
}

// Config is simulation and filter configuration
type Config struct {
	// Model is motion model name
	Model string `mapstructure:"model" yaml:"model"`
	// Variant is filter variant
	Variant string `mapstructure:"variant" yaml:"variant"`
	// Measurement is measurement model name
	Measurement string `mapstructure:"measurement" yaml:"measurement"`
	// Sensor is planar range-bearing sensor position; empty places the sensor at the origin
	Sensor []float64 `mapstructure:"sensor" yaml:"sensor,omitempty"`
	// Dt is sampling period
	Dt float64 `mapstructure:"dt" yaml:"dt"`
	// Steps is the number of simulation steps
	Steps int `mapstructure:"steps" yaml:"steps"`
	// Seed seeds random draws
	Seed uint64 `mapstructure:"seed" yaml:"seed"`
	// X0 is initial state mean
	X0 []float64 `mapstructure:"x0" yaml:"x0,omitempty"`
	// P0 is initial state covariance
	P0 [][]float64 `mapstructure:"p0" yaml:"p0,omitempty"`
	// Q is process noise covariance
	Q [][]float64 `mapstructure:"q" yaml:"q,omitempty"`
	// R is measurement noise covariance
	R [][]float64 `mapstructure:"r" yaml:"r,omitempty"`
	// MaxCond is innovation covariance condition number limit
	MaxCond float64 `mapstructure:"max_cond" yaml:"max_cond"`
	// Iterations is the number of EKF update iterations
	Iterations int `mapstructure:"iterations" yaml:"iterations"`
	// Plot is plot output path
	Plot string `mapstructure:"plot" yaml:"plot,omitempty"`
	// Log configures logging
	Log Log `mapstructure:"log" yaml:"log"`
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Model:       model.CV.String(),
		Variant:     kalman.KF.String(),
		Measurement: Position,
		Dt:          1.0,
		Steps:       100,
		Seed:        1,
		MaxCond:     1e12,
		Iterations:  1,
		Log: Log{
			Level: "info",
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("model", d.Model)
	v.SetDefault("variant", d.Variant)
	v.SetDefault("measurement", d.Measurement)
	v.SetDefault("dt", d.Dt)
	v.SetDefault("steps", d.Steps)
	v.SetDefault("seed", d.Seed)
	v.SetDefault("max_cond", d.MaxCond)
	v.SetDefault("iterations", d.Iterations)
	v.SetDefault("plot", d.Plot)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.dev", d.Log.Dev)
}

// Load loads configuration from the YAML file at path, environment variables prefixed
// with VSE_ and flags, in increasing order of precedence, on top of the defaults.
// Empty path skips the file; nil flags skips the flags.
// The loaded configuration is validated.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config %s", path)
		}
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, errors.Wrap(err, "failed to bind flags")
		}
		for key, name := range map[string]string{"log.level": "log-level", "log.dev": "log-dev", "max_cond": "max-cond"} {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, errors.Wrapf(err, "failed to bind %s flag", name)
				}
			}
		}
	}

	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, errors.Wrap(err, "failed to decode config")
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// Save writes configuration c to path in YAML format
func Save(c *Config, path string) error {
	data, err := c.YAML()
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write config %s", path)
	}

	return nil
}

// YAML returns configuration encoded in YAML
func (c *Config) YAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode config")
	}

	return data, nil
}

// Validate returns error if configuration is invalid
func (c *Config) Validate() error {
	name, err := model.ParseName(c.Model)
	if err != nil {
		return err
	}

	v, err := kalman.ParseVariant(c.Variant)
	if err != nil {
		return err
	}

	if c.Measurement != Position && c.Measurement != RangeBearing {
		return errors.Errorf("unknown measurement model: %q", c.Measurement)
	}

	if len(c.Sensor) != 0 && len(c.Sensor) != 2 {
		return errors.Wrapf(filter.ErrDimensionMismatch, "sensor position: %d != 2", len(c.Sensor))
	}

	if v == kalman.KF && (c.Measurement != Position || !isLinear(name)) {
		return errors.Wrapf(filter.ErrUnsupportedModel, "KF with %s motion and %s measurement", c.Model, c.Measurement)
	}

	if c.Dt <= 0 {
		return errors.Errorf("invalid sampling period: %v", c.Dt)
	}

	if c.Steps <= 0 {
		return errors.Errorf("invalid number of steps: %d", c.Steps)
	}

	if c.MaxCond < 0 {
		return errors.Errorf("invalid condition number limit: %v", c.MaxCond)
	}

	if c.Iterations < 0 {
		return errors.Errorf("invalid number of iterations: %d", c.Iterations)
	}

	mats, err := c.Matrices()
	if err != nil {
		return err
	}

	if c.Measurement == RangeBearing {
		sx, sy := c.SensorPosition()
		if mats.X0.AtVec(0) == sx && mats.X0.AtVec(1) == sy {
			return errors.Errorf("initial position (%v, %v) coincides with the sensor", sx, sy)
		}
	}

	return nil
}

// SensorPosition returns the configured range-bearing sensor position
func (c *Config) SensorPosition() (x, y float64) {
	if len(c.Sensor) != 2 {
		return 0, 0
	}

	return c.Sensor[0], c.Sensor[1]
}

// Matrices are configured initial estimate and noise covariances
type Matrices struct {
	// X0 is initial state mean
	X0 *mat.VecDense
	// P0 is initial state covariance
	P0 *mat.SymDense
	// Q is process noise covariance
	Q *mat.SymDense
	// R is measurement noise covariance
	R *mat.SymDense
}

// Matrices converts the configured arrays into matrices sized for the configured models.
// Missing arrays default to zero initial state, identity P0, 0.01*I process noise and 0.1*I measurement noise.
// Range-bearing runs without x0 start DefaultRange away from the sensor along the x axis.
// It returns error if the arrays disagree with the model dimensions or are not symmetric positive semi-definite.
func (c *Config) Matrices() (*Matrices, error) {
	name, err := model.ParseName(c.Model)
	if err != nil {
		return nil, err
	}

	nx := name.StateDim()
	ny := 2

	x0 := mat.NewVecDense(nx, nil)
	if c.Measurement == RangeBearing {
		sx, sy := c.SensorPosition()
		x0.SetVec(0, sx+DefaultRange)
		x0.SetVec(1, sy)
	}
	if len(c.X0) > 0 {
		if len(c.X0) != nx {
			return nil, errors.Wrapf(filter.ErrDimensionMismatch, "x0: %d != %d", len(c.X0), nx)
		}
		x0 = mat.NewVecDense(nx, append([]float64(nil), c.X0...))
	}

	p0, err := symmetric("p0", c.P0, nx, 1.0)
	if err != nil {
		return nil, err
	}

	q, err := symmetric("q", c.Q, nx, 0.01)
	if err != nil {
		return nil, err
	}

	r, err := symmetric("r", c.R, ny, 0.1)
	if err != nil {
		return nil, err
	}

	return &Matrices{X0: x0, P0: p0, Q: q, R: r}, nil
}

// Models returns configured motion and measurement models
func (c *Config) Models() (filter.MotionModel, filter.MeasurementModel, error) {
	name, err := model.ParseName(c.Model)
	if err != nil {
		return nil, nil, err
	}

	m, err := model.New(name, c.Dt)
	if err != nil {
		return nil, nil, err
	}

	var h filter.MeasurementModel
	switch c.Measurement {
	case Position:
		h, err = model.Position(name.StateDim())
	case RangeBearing:
		sx, sy := c.SensorPosition()
		h, err = model.RangeBearingAt(name.StateDim(), sx, sy)
	default:
		err = errors.Errorf("unknown measurement model: %q", c.Measurement)
	}
	if err != nil {
		return nil, nil, err
	}

	return m, h, nil
}

// Options returns filter options
func (c *Config) Options() []kalman.Option {
	return []kalman.Option{
		kalman.WithMaxCond(c.MaxCond),
		kalman.WithIterations(c.Iterations),
	}
}

func symmetric(key string, rows [][]float64, n int, diag float64) (*mat.SymDense, error) {
	if len(rows) == 0 {
		eye, err := mx.NewDenseValIdentity(n, diag)
		if err != nil {
			return nil, errors.Wrapf(err, "default %s", key)
		}
		return matrix.Symmetrize(eye), nil
	}

	if len(rows) != n {
		return nil, errors.Wrapf(filter.ErrDimensionMismatch, "%s rows: %d != %d", key, len(rows), n)
	}

	data := make([]float64, 0, n*n)
	for i, row := range rows {
		if len(row) != n {
			return nil, errors.Wrapf(filter.ErrDimensionMismatch, "%s row %d: %d != %d", key, i, len(row), n)
		}
		data = append(data, row...)
	}

	m := mat.NewDense(n, n, data)
	if !matrix.IsSymmetric(m, matrix.SymTol) {
		return nil, errors.Wrapf(filter.ErrInvalidCovariance, "%s not symmetric", key)
	}

	s := matrix.Symmetrize(m)
	if !matrix.IsPSD(s, matrix.SymTol) {
		return nil, errors.Wrapf(filter.ErrInvalidCovariance, "%s not positive semi-definite", key)
	}

	return s, nil
}

func isLinear(n model.Name) bool {
	m, err := model.New(n, 1.0)
	if err != nil {
		return false
	}

	_, ok := m.(filter.LinearMotion)

	return ok
}
