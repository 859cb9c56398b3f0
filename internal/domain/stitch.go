package domain

// Stitch assembles the daily records of every ensemble member.
//
// For a season inside one calendar year the member's records are the season
// months of the sampled year. For a season crossing the year boundary the
// months from Start to December come from the sampled year and the months
// from January to End come from the following year. Each output record
// carries the member's sample id and the season name.
func Stitch(records []DailyRecord, s Season, members []EnsembleMember) []StitchedRecord {
	byYear := make(map[int][]DailyRecord)
	for _, r := range records {
		if s.Contains(r.Month) {
			byYear[r.Year] = append(byYear[r.Year], r)
		}
	}

	var out []StitchedRecord
	for _, m := range members {
		for _, r := range byYear[m.Year] {
			if s.CrossesYear() && r.Month < s.Start {
				continue
			}
			out = append(out, StitchedRecord{DailyRecord: r, SampleID: m.SampleID, Season: s.Name})
		}
		if !s.CrossesYear() {
			continue
		}
		for _, r := range byYear[m.NextYear] {
			if r.Month > s.End {
				continue
			}
			out = append(out, StitchedRecord{DailyRecord: r, SampleID: m.SampleID, Season: s.Name})
		}
	}
	return out
}
