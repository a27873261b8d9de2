package ingest

import (
	"strings"
	"time"

	"horse.fit/news-coverage/internal/model"
	payloadschema "horse.fit/news-coverage/schema"
)

// RecordFor builds the stored record for a processed article. Articles and
// facts without a date are dated today.
func RecordFor(article model.Article, cls model.Classification, facts []model.Fact, today time.Time) payloadschema.CoverageRecord {
	buyer := strings.TrimSpace(cls.Company)
	if buyer == "" {
		buyer = model.UnknownBuyer
	}

	record := payloadschema.CoverageRecord{
		Buyer:               buyer,
		Quarter:             cls.Quarter,
		Title:               article.Title,
		Source:              article.Source,
		URL:                 article.URL,
		PublishedAt:         article.PublishDate(today).Format(time.DateOnly),
		ClassificationNotes: cls.Category,
		Facts:               make([]payloadschema.FactRecord, 0, len(facts)),
	}
	for _, fact := range facts {
		published := fact.PublishedAt
		if published.IsZero() {
			published = today
		}
		subheading := fact.Subheading
		if strings.TrimSpace(subheading) == "" {
			subheading = model.SubheadingGNS
		}
		factBuyer := fact.Buyer
		if strings.TrimSpace(factBuyer) == "" {
			factBuyer = buyer
		}
		quarter := fact.Quarter
		if strings.TrimSpace(quarter) == "" {
			quarter = cls.Quarter
		}
		record.Facts = append(record.Facts, payloadschema.FactRecord{
			FactID:       fact.ID,
			CategoryPath: fact.CategoryPath,
			Section:      fact.Section,
			Subheading:   subheading,
			Buyer:        factBuyer,
			Quarter:      quarter,
			PublishedAt:  published.Format(time.DateOnly),
			ContentLine:  fact.ContentLine,
			SummaryLines: fact.Lines(),
		})
	}
	return record
}
