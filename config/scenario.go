package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"intellab-testing/internal/domain"
	"intellab-testing/internal/harness"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

//go:embed solutions/single_number.py
var singleNumberSolution string

// Scenario describes one load profile and what each iteration submits.
type Scenario struct {
	Name       string              `mapstructure:"name"`
	Stages     []harness.Stage     `mapstructure:"stages"`
	Thresholds map[string][]string `mapstructure:"thresholds"`
	Submission SubmissionConfig    `mapstructure:"submission"`
}

// SubmissionConfig is the template for submitted code.
type SubmissionConfig struct {
	ProblemID           string `mapstructure:"problem_id" validate:"required,uuid"`
	ProgrammingLanguage string `mapstructure:"programming_language" validate:"required"`
	SubmitOrder         int    `mapstructure:"submit_order" validate:"gte=0"`
	CodeFile            string `mapstructure:"code_file"`

	// Code is CodeFile's content, or the built-in solution when unset.
	Code string `mapstructure:"-" validate:"required"`
}

// Template returns the submission payload without a user id.
func (s SubmissionConfig) Template() domain.Submission {
	return domain.Submission{
		Code:                s.Code,
		SubmitOrder:         s.SubmitOrder,
		ProgrammingLanguage: s.ProgrammingLanguage,
		ProblemID:           s.ProblemID,
	}
}

// DefaultStages ramps to 5 VUs, holds a climb to 10, then ramps down.
func DefaultStages() []harness.Stage {
	return []harness.Stage{
		{Duration: 30 * time.Second, Target: 5},
		{Duration: 60 * time.Second, Target: 10},
		{Duration: 30 * time.Second, Target: 0},
	}
}

// DefaultThresholds fails the run above 1% errors or a 2s p95.
func DefaultThresholds() map[string][]string {
	return map[string][]string{
		harness.MetricHTTPReqFailed:   {"rate<0.01"},
		harness.MetricHTTPReqDuration: {"p(95)<2000"},
	}
}

// DefaultScenario is the submit scenario used without a scenario file.
func DefaultScenario() Scenario {
	return Scenario{
		Name:       "submit",
		Stages:     DefaultStages(),
		Thresholds: DefaultThresholds(),
		Submission: SubmissionConfig{
			ProblemID:           "e608ebb7-07ef-4a2f-8081-92e5993e6118",
			ProgrammingLanguage: "Python (3.8.1)",
			SubmitOrder:         1,
			Code:                singleNumberSolution,
		},
	}
}

// LoadScenario reads a YAML scenario file. Keys it omits keep the default
// scenario's values; an explicit empty thresholds map disables thresholds.
func LoadScenario(path string) (Scenario, error) {
	if path == "" {
		return DefaultScenario(), nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Scenario{}, fmt.Errorf("%w: reading scenario: %w", domain.ErrConfiguration, err)
	}

	var sc Scenario
	if err := v.Unmarshal(&sc); err != nil {
		return Scenario{}, fmt.Errorf("%w: unmarshaling scenario: %w", domain.ErrConfiguration, err)
	}

	if len(sc.Stages) == 0 {
		sc.Stages = DefaultStages()
	}
	if !v.IsSet("thresholds") {
		sc.Thresholds = DefaultThresholds()
	}

	sc.Submission.Code = singleNumberSolution
	if file := sc.Submission.CodeFile; file != "" {
		if !filepath.IsAbs(file) {
			file = filepath.Join(filepath.Dir(path), file)
		}
		content, err := os.ReadFile(file)
		if err != nil {
			return Scenario{}, fmt.Errorf("%w: reading code file: %w", domain.ErrConfiguration, err)
		}
		sc.Submission.Code = string(content)
	}

	return sc, nil
}

// setDefaults configures default values
func setDefaults(v *viper.Viper) {
	def := DefaultScenario()
	v.SetDefault("name", def.Name)
	v.SetDefault("submission.problem_id", def.Submission.ProblemID)
	v.SetDefault("submission.programming_language", def.Submission.ProgrammingLanguage)
	v.SetDefault("submission.submit_order", def.Submission.SubmitOrder)
}

// Validate checks the stages, thresholds and submission template.
func (s Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: scenario name cannot be empty", domain.ErrConfiguration)
	}
	if _, err := harness.NewStagePacer(s.Stages, time.Second); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
	}
	if s.maxTarget() == 0 {
		return fmt.Errorf("%w: at least one stage needs a positive target", domain.ErrConfiguration)
	}
	if _, err := harness.ParseThresholds(s.Thresholds); err != nil {
		return err
	}

	if err := submissionValidator.Struct(s.Submission); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrConfiguration, describeValidation(err))
	}
	return nil
}

var submissionValidator = newSubmissionValidator()

func newSubmissionValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their scenario file keys.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return "code"
		}
		return "submission." + name
	})
	return v
}

// describeValidation turns validator errors into one message per field.
func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	errs := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			errs = append(errs, fmt.Errorf("%s cannot be empty", fe.Field()))
		case "uuid":
			errs = append(errs, fmt.Errorf("%s must be a UUID, got %q", fe.Field(), fe.Value()))
		default:
			errs = append(errs, fmt.Errorf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		}
	}
	return errors.Join(errs...)
}

func (s Scenario) maxTarget() int {
	peak := 0
	for _, st := range s.Stages {
		peak = max(peak, st.Target)
	}
	return peak
}
