package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seasonProbs(season string, below, normal, above float64) []CategoryProbability {
	return []CategoryProbability{
		{StationID: "ws", Season: season, Category: CategoryBelow, Probability: below},
		{StationID: "ws", Season: season, Category: CategoryNormal, Probability: normal},
		{StationID: "ws", Season: season, Category: CategoryAbove, Probability: above},
	}
}

func fullPool() YearPool {
	return YearPool{
		CategoryBelow:  {2001, 2002},
		CategoryNormal: {2003},
		CategoryAbove:  {2004, 2005},
	}
}

func TestSampleEnsemble_SizeAndIDs(t *testing.T) {
	s := mustSeason(t, ModeTrimonthly, "Mar-Apr-May")

	members, err := SampleEnsemble(s, seasonProbs(s.Name, 0.2, 0.3, 0.5), fullPool(), newRand(1))
	require.NoError(t, err)
	require.Len(t, members, EnsembleSize)

	pool := fullPool()
	seen := map[int]bool{}
	for i, m := range members {
		assert.Equal(t, i, m.SampleID)
		assert.False(t, seen[m.SampleID])
		seen[m.SampleID] = true
		assert.Equal(t, s.Name, m.Season)
		assert.Equal(t, m.Year+1, m.NextYear)
		assert.Contains(t, pool[m.Category], m.Year)
	}
}

func TestSampleEnsemble_FollowsCategoryWeights(t *testing.T) {
	s := mustSeason(t, ModeTrimonthly, "Mar-Apr-May")
	probs := seasonProbs(s.Name, 0.2, 0.3, 0.5)
	rng := newRand(2024)

	const runs = 200
	counts := map[Category]int{}
	for range runs {
		members, err := SampleEnsemble(s, probs, fullPool(), rng)
		require.NoError(t, err)
		for _, m := range members {
			counts[m.Category]++
		}
	}

	total := float64(runs * EnsembleSize)
	assert.InDelta(t, 0.2, float64(counts[CategoryBelow])/total, 0.02)
	assert.InDelta(t, 0.3, float64(counts[CategoryNormal])/total, 0.02)
	assert.InDelta(t, 0.5, float64(counts[CategoryAbove])/total, 0.02)
}

func TestSampleEnsemble_ZeroWeightCategoryNeverDrawn(t *testing.T) {
	s := mustSeason(t, ModeTrimonthly, "Mar-Apr-May")

	members, err := SampleEnsemble(s, seasonProbs(s.Name, 0, 1, 0), fullPool(), newRand(5))
	require.NoError(t, err)
	for _, m := range members {
		assert.Equal(t, CategoryNormal, m.Category)
		assert.Equal(t, 2003, m.Year)
	}
}

func TestSampleEnsemble_EmptyCategory(t *testing.T) {
	s := mustSeason(t, ModeTrimonthly, "Mar-Apr-May")
	pool := YearPool{CategoryBelow: {2001}, CategoryNormal: {2002}}

	_, err := SampleEnsemble(s, seasonProbs(s.Name, 0, 0, 1), pool, newRand(1))
	assert.ErrorIs(t, err, ErrEmptyCategory)
	assert.NotErrorIs(t, err, ErrContract)
}

func TestSampleEnsemble_NoWeights(t *testing.T) {
	s := mustSeason(t, ModeTrimonthly, "Mar-Apr-May")

	_, err := SampleEnsemble(s, seasonProbs("Jun-Jul-Aug", 0.2, 0.3, 0.5), fullPool(), newRand(1))
	assert.ErrorIs(t, err, ErrInvalidWeights)
}

func TestSampleEnsemble_SameSeedSameDraws(t *testing.T) {
	s := mustSeason(t, ModeTrimonthly, "Mar-Apr-May")
	probs := seasonProbs(s.Name, 0.2, 0.3, 0.5)

	a, err := SampleEnsemble(s, probs, fullPool(), newRand(77))
	require.NoError(t, err)
	b, err := SampleEnsemble(s, probs, fullPool(), newRand(77))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestBuildYearPool_CrossingSeasonNeedsFollowingJanuary(t *testing.T) {
	ndj := mustSeason(t, ModeTrimonthly, "Nov-Dec-Jan")
	classes := []YearClassification{
		{Season: ndj.Name, Year: 2001, Category: CategoryBelow},
		{Season: ndj.Name, Year: 2002, Category: CategoryNormal},
		{Season: ndj.Name, Year: 2003, Category: CategoryAbove},
	}
	// 2004 is on record but stops before January ends.
	history := dailyHistory(2001, 2003, yearlyPrec(900))
	history = append(history, dailyHistory(2004, 2004, yearlyPrec(900))[:20]...)

	pool := BuildYearPool(classes, NewCoverage(history, ndj, 2025))
	assert.Equal(t, []int{2001}, pool[CategoryBelow])
	assert.Equal(t, []int{2002}, pool[CategoryNormal])
	assert.Empty(t, pool[CategoryAbove])

	mam := mustSeason(t, ModeTrimonthly, "Mar-Apr-May")
	pool = BuildYearPool(classes, NewCoverage(history, mam, 2024))
	assert.Equal(t, []int{2003}, pool[CategoryAbove])
}

func TestBuildYearPool_SkipsSeriesEndingMidSeason(t *testing.T) {
	amj := mustSeason(t, ModeTrimonthly, "Apr-May-Jun")
	var history []DailyRecord
	for _, r := range dailyHistory(2009, 2010, yearlyPrec(900)) {
		if r.Year < 2010 || r.Month < 5 || r.Month == 5 && r.Day <= 15 {
			history = append(history, r)
		}
	}
	classes := []YearClassification{
		{Season: amj.Name, Year: 2009, Category: CategoryBelow},
		{Season: amj.Name, Year: 2010, Category: CategoryBelow},
	}

	pool := BuildYearPool(classes, NewCoverage(history, amj, 2024))
	assert.Equal(t, YearPool{CategoryBelow: {2009}}, pool)
}

func TestCoverage_LeapNormalizedFebruary(t *testing.T) {
	djf := mustSeason(t, ModeTrimonthly, "Dec-Jan-Feb")
	history := dailyHistory(2002, 2004, yearlyPrec(900))

	// 2025 has a 28 day February; raw 2004 still carries its 29th.
	raw := NewCoverage(history, djf, 2025)
	assert.True(t, raw.WindowComplete(2002))
	assert.False(t, raw.WindowComplete(2003))

	normalized := NewCoverage(NormalizeLeapDays(history, 2025, newRand(3)), djf, 2025)
	assert.True(t, normalized.WindowComplete(2002))
	assert.True(t, normalized.WindowComplete(2003))
	assert.False(t, normalized.WindowComplete(2004))
	assert.Equal(t, 90, djf.Length(2025))
	assert.Equal(t, 91, djf.Length(2028))
}
