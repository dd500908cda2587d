// Package tracking provides real-time vehicle position estimation.
//
// This package handles:
// - Resolving a displayable route identity from realtime trip descriptors,
//   the static trip table, or trip-id pattern heuristics
// - Estimating vehicle locations along route shapes between the last passed
//   and next upcoming predicted stops
// - Matching trips to shapes by endpoint proximity when the static tables
//   carry no shape reference
//
// Positions are manufactured for visual continuity between discrete
// arrival predictions; they are approximations, not GPS fixes.
package tracking
