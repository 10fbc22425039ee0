package ideas

import (
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/ideasearch/internal/db/redis"
	"github.com/kailas-cloud/ideasearch/internal/domain/idea"
)

// Hash field names.
const (
	fieldID               = "id"
	fieldSubmitterID      = "submitter_id"
	fieldTitle            = "title"
	fieldSummary          = "summary"
	fieldDomain           = "domain"
	fieldBusinessGroup    = "business_group"
	fieldTechStack        = "tech_stack"
	fieldBuildPhase       = "build_phase"
	fieldBuildPreference  = "build_preference"
	fieldScalability      = "scalability"
	fieldNovelty          = "novelty"
	fieldBenefits         = "benefits"
	fieldAdditionalInfo   = "additional_info"
	fieldExpectedOutcomes = "expected_outcomes"
	fieldBusinessModel    = "business_model"
	fieldPrototypeURL     = "prototype_url"
	fieldScore            = "score"
	fieldCreatedAt        = "created_at"
	fieldUpdatedAt        = "updated_at"
	fieldBlob             = "blob"
	fieldEmbedding        = "embedding"
)

// recordFields are returned by searches; the blob and vector are never read back.
var recordFields = []string{
	fieldID, fieldSubmitterID, fieldTitle, fieldSummary, fieldDomain, fieldBusinessGroup,
	fieldTechStack, fieldBuildPhase, fieldBuildPreference, fieldScalability, fieldNovelty,
	fieldBenefits, fieldAdditionalInfo, fieldExpectedOutcomes, fieldBusinessModel,
	fieldPrototypeURL, fieldScore, fieldCreatedAt, fieldUpdatedAt,
}

// buildHashFields flattens an indexed record for HSET.
func buildHashFields(in *idea.Indexed) map[string]string {
	r := &in.Record
	m := map[string]string{
		fieldID:               r.ID,
		fieldSubmitterID:      r.SubmitterID,
		fieldTitle:            r.Title,
		fieldSummary:          r.Summary,
		fieldDomain:           r.Domain,
		fieldBusinessGroup:    r.BusinessGroup,
		fieldTechStack:        strings.Join(r.TechStack, ","),
		fieldBuildPhase:       r.BuildPhase,
		fieldBuildPreference:  r.BuildPreference,
		fieldScalability:      r.Scalability,
		fieldNovelty:          r.Novelty,
		fieldBenefits:         r.Benefits,
		fieldAdditionalInfo:   r.AdditionalInfo,
		fieldExpectedOutcomes: r.ExpectedOutcomes,
		fieldBusinessModel:    r.BusinessModel,
		fieldPrototypeURL:     r.PrototypeURL,
		fieldScore:            strconv.FormatFloat(r.Score, 'f', -1, 64),
		fieldBlob:             in.Document.Text,
	}
	if !r.CreatedAt.IsZero() {
		m[fieldCreatedAt] = strconv.FormatInt(r.CreatedAt.Unix(), 10)
	}
	if !r.UpdatedAt.IsZero() {
		m[fieldUpdatedAt] = strconv.FormatInt(r.UpdatedAt.Unix(), 10)
	}
	if len(in.Document.Vector) > 0 {
		m[fieldEmbedding] = redis.VectorToBytes(in.Document.Vector)
	}
	return m
}

// parseHashFields rebuilds a record from hash fields; unparsable numbers are left zero.
func parseHashFields(id string, m map[string]string) idea.Record {
	r := idea.Record{
		ID:               id,
		SubmitterID:      m[fieldSubmitterID],
		Title:            m[fieldTitle],
		Summary:          m[fieldSummary],
		Domain:           m[fieldDomain],
		BusinessGroup:    m[fieldBusinessGroup],
		TechStack:        idea.SplitList(m[fieldTechStack]),
		BuildPhase:       m[fieldBuildPhase],
		BuildPreference:  m[fieldBuildPreference],
		Scalability:      m[fieldScalability],
		Novelty:          m[fieldNovelty],
		Benefits:         m[fieldBenefits],
		AdditionalInfo:   m[fieldAdditionalInfo],
		ExpectedOutcomes: m[fieldExpectedOutcomes],
		BusinessModel:    m[fieldBusinessModel],
		PrototypeURL:     m[fieldPrototypeURL],
		CreatedAt:        parseUnix(m[fieldCreatedAt]),
		UpdatedAt:        parseUnix(m[fieldUpdatedAt]),
	}
	if v, ok := m[fieldID]; ok && v != "" {
		r.ID = v
	}
	if s, err := strconv.ParseFloat(m[fieldScore], 64); err == nil {
		r.Score = s
	}
	return r
}

func parseUnix(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	sec, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}
