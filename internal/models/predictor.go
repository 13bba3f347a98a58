package models

import "time"

// Urgency is the Change Predictor's recommended-action level for a
// (domain, url-pattern) pair.
type Urgency int

const (
	UrgencyLow      Urgency = 0
	UrgencyNormal   Urgency = 1
	UrgencyHigh     Urgency = 2
	UrgencyCritical Urgency = 3
)

func (u Urgency) String() string {
	switch u {
	case UrgencyLow:
		return "low"
	case UrgencyNormal:
		return "normal"
	case UrgencyHigh:
		return "high"
	case UrgencyCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Observation is one entry in a Change-Prediction Pattern's circular
// buffer.
type Observation struct {
	Timestamp   time.Time `json:"timestamp"`
	ContentHash string    `json:"content_hash"`
	Changed     bool      `json:"changed"`
}

// PeriodicPattern is the detected period/phase/confidence for a
// (domain, url-pattern) pair whose change intervals show low variance.
type PeriodicPattern struct {
	Period     time.Duration `json:"period"`
	Phase      time.Time     `json:"phase"` // first observed change
	Confidence float64       `json:"confidence"`
}

// CalendarTrigger is a recurring (month, day-of-month) on which changes
// have historically clustered.
type CalendarTrigger struct {
	Month          time.Month `json:"month"`
	DayOfMonth     int        `json:"day_of_month"`
	Description    string     `json:"description,omitempty"`
	HistoricalCount int       `json:"historical_count"`
	Confidence     float64    `json:"confidence"`
}

// SeasonalDistribution holds observed-change weight histograms by month and
// weekday.
type SeasonalDistribution struct {
	ByMonth   map[time.Month]float64    `json:"by_month,omitempty"`
	ByWeekday map[time.Weekday]float64  `json:"by_weekday,omitempty"`
}

// Prediction is the Change Predictor's next-change forecast.
type Prediction struct {
	PredictedAt       time.Time     `json:"predicted_at"`
	Confidence        float64       `json:"confidence"`
	UncertaintyWindow time.Duration `json:"uncertainty_window"`
	Reason            string        `json:"reason"` // "periodic" or "calendar"
}

// PredictionAccuracy is the rolling counter used to derive patternConfidence
// from how well past predictions tracked actual observed changes.
type PredictionAccuracy struct {
	TotalPredictions int     `json:"total_predictions"`
	HitsWithinWindow int     `json:"hits_within_window"`
	RollingRate      float64 `json:"rolling_rate"`
}

// ChangePredictionPattern is the persistent per-(domain, url-pattern)
// temporal model from spec.md §3/§4.5.
type ChangePredictionPattern struct {
	Domain     string      `json:"domain"`
	URLPattern string      `json:"url_pattern"`
	Buffer     []Observation `json:"buffer"` // bounded circular buffer, oldest-first
	BufferCap  int         `json:"buffer_cap"`

	Periodic *PeriodicPattern   `json:"periodic,omitempty"`
	Calendar []CalendarTrigger  `json:"calendar,omitempty"`
	Seasonal SeasonalDistribution `json:"seasonal"`

	Urgency              Urgency       `json:"urgency"`
	NextPrediction       *Prediction   `json:"next_prediction,omitempty"`
	RecommendedPollEvery time.Duration `json:"recommended_poll_every"`

	Accuracy PredictionAccuracy `json:"accuracy"`

	UpdatedAt time.Time `json:"updated_at"`
}

// PushObservation appends an observation to the bounded circular buffer,
// evicting the oldest entry once BufferCap is reached.
func (p *ChangePredictionPattern) PushObservation(o Observation) {
	p.Buffer = append(p.Buffer, o)
	if p.BufferCap > 0 && len(p.Buffer) > p.BufferCap {
		p.Buffer = p.Buffer[len(p.Buffer)-p.BufferCap:]
	}
	p.UpdatedAt = o.Timestamp
}
