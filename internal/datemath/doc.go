// Package datemath holds the wall-clock abstraction and the calendar-day
// arithmetic every deployment computation is built on.
//
// All day counts are taken between civil dates: a time is reduced to its
// year/month/day in its own location before differencing, so the time of
// day never changes a count. Thirty-day "months" are used throughout the
// projections, matching how pay and savings periods are estimated.
package datemath
