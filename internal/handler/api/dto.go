package api

import (
	"time"

	"LPPLWatch/internal/domain/models"
	"LPPLWatch/pkg/util"
)

type clusterDTO struct {
	Start          string  `json:"start"`
	End            string  `json:"end"`
	Range          string  `json:"range"`
	Label          string  `json:"label"`
	Days           int     `json:"days"`
	PeakConfidence float64 `json:"peak_confidence"`
}

func toClusterDTO(c models.Cluster) clusterDTO {
	return clusterDTO{
		Start:          util.FormatDay(c.Start),
		End:            util.FormatDay(c.End),
		Range:          c.DateRange(),
		Label:          string(c.Label),
		Days:           c.Days(),
		PeakConfidence: c.PeakConfidence,
	}
}

type confidenceDTO struct {
	Date    string  `json:"date"`
	Price   float64 `json:"price"`
	PosConf float64 `json:"pos_conf"`
	NegConf float64 `json:"neg_conf"`
}

type stageDTO struct {
	Stage      string `json:"stage"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

type instrumentDTO struct {
	Symbol       string       `json:"symbol"`
	Failed       bool         `json:"failed"`
	Error        string       `json:"error,omitempty"`
	CriticalTime string       `json:"critical_time,omitempty"`
	Clusters     []clusterDTO `json:"clusters"`
	Remarks      []string     `json:"remarks,omitempty"`
	Artifacts    []string     `json:"artifacts,omitempty"`
	Purged       []string     `json:"purged,omitempty"`
	Stages       []stageDTO   `json:"stages"`
}

type batchDTO struct {
	RunID       string          `json:"run_id"`
	RunDate     string          `json:"run_date"`
	StartedAt   time.Time       `json:"started_at"`
	FinishedAt  time.Time       `json:"finished_at"`
	Failed      int             `json:"failed"`
	Instruments []instrumentDTO `json:"instruments"`
}

func toBatchDTO(b *models.BatchOutcome) batchDTO {
	out := batchDTO{
		RunID:       b.RunID.String(),
		RunDate:     util.FormatDay(b.RunDate),
		StartedAt:   b.StartedAt,
		FinishedAt:  b.FinishedAt,
		Failed:      b.Failed(),
		Instruments: make([]instrumentDTO, 0, len(b.Instruments)),
	}
	for _, o := range b.Instruments {
		out.Instruments = append(out.Instruments, toInstrumentDTO(o))
	}
	return out
}

func toInstrumentDTO(o *models.InstrumentOutcome) instrumentDTO {
	dto := instrumentDTO{
		Symbol:   o.Symbol,
		Failed:   o.Failed(),
		Clusters: make([]clusterDTO, 0, len(o.Clusters)),
		Purged:   o.Purged,
		Stages:   make([]stageDTO, 0, len(o.Stages)),
	}
	if o.Err != nil {
		dto.Error = o.Err.Error()
	}
	if o.CriticalTime.Converged {
		dto.CriticalTime = util.FormatDay(o.CriticalTime.Date)
	}
	for _, c := range o.Clusters {
		dto.Clusters = append(dto.Clusters, toClusterDTO(c))
	}
	if o.Narrative != nil {
		for _, r := range o.Narrative.Remarks() {
			dto.Remarks = append(dto.Remarks, r.Text)
		}
	}
	for _, a := range o.Artifacts {
		dto.Artifacts = append(dto.Artifacts, a.Path)
	}
	for _, s := range o.Stages {
		sd := stageDTO{Stage: string(s.Stage), DurationMS: s.Duration.Milliseconds()}
		if s.Err != nil {
			sd.Error = s.Err.Error()
		}
		dto.Stages = append(dto.Stages, sd)
	}
	return dto
}
