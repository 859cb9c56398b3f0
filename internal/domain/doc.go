// Package domain implements seasonal probabilistic resampling of daily station
// climate records.
//
// # Inputs
//
// Daily series: one row per station-day of history with the columns
//
//	day, month, year, prec, t_max, t_min, sol_rad
//
// Seasonal probabilities: one row per station per forecast month carrying the
// below/normal/above tercile probabilities issued by the upstream climate
// prediction model (CPT). The probabilities are taken as given.
//
// # Seasons
//
// A season is a contiguous run of calendar months. Trimonthly mode slides a
// three-month window across the year with stride one, so twelve seasons exist
// and two of them cross the year boundary:
//
//	Jan-Feb-Mar, Feb-Mar-Apr, ..., Nov-Dec-Jan, Dec-Jan-Feb
//
// Probability rows join trimonthly seasons on the central month. Bimonthly
// mode uses the six pairs Jan-Feb ... Nov-Dec; a row joins the pair where its
// month is the start and, separately, the pair where its month is the end.
// Both joins are kept and their probability mass is summed by the sampler.
//
// # Resampling
//
// For each season the historical precipitation totals per calendar year are
// split at the 33rd and 66th percentiles (linear interpolation):
//
//	below:  total <= p33
//	above:  total >= p66
//	normal: otherwise
//
// One hundred ensemble members are then drawn. Each draw picks a category
// weighted by the forecast probabilities, then a historical year uniformly
// from that category. The member's sample id (0..99) follows it through
// stitching and into the scenario file name.
//
// Seasons crossing the year boundary take the late months from the sampled
// year and the early months from the following year. A year is only eligible
// for such a season when the following year exists in the record.
//
// # Leap days
//
// February is normalized to the calendar of the season's target year before
// classification: a missing day 29 is synthesized by copying a random
// February day of the same historical year, a surplus day 29 is dropped.
//
// # Randomness
//
// Every random choice takes an explicit *rand.Rand so runs are reproducible
// and stations can be processed concurrently without shared state.
package domain
