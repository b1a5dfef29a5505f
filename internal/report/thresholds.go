package report

import (
	"fmt"

	"github.com/oncoregistry/internal/models"
)

// ThresholdAlert is a rule violation derived from one execution's metrics.
type ThresholdAlert struct {
	MetricName     string                    `json:"metric_name"`
	CurrentValue   float64                   `json:"current_value"`
	ThresholdValue float64                   `json:"threshold_value"`
	Condition      models.ThresholdCondition `json:"condition"`
	Severity       models.AlertSeverity      `json:"severity"`
	Message        string                    `json:"message"`
}

// EvaluateThresholds produces at most one alert per rule. Severity comes
// verbatim from the rule.
func EvaluateThresholds(rules []models.ThresholdRule, metrics map[string]float64) []ThresholdAlert {
	var alerts []ThresholdAlert
	for _, rule := range rules {
		current, ok := metrics[rule.MetricName]
		if !ok {
			continue
		}
		if !conditionHolds(rule.Condition, current, rule.ThresholdValue) {
			continue
		}

		message := rule.Message
		if message == "" {
			message = fmt.Sprintf("%s is %.2f (%s %.2f)",
				rule.MetricName, current, rule.Condition, rule.ThresholdValue)
		}
		alerts = append(alerts, ThresholdAlert{
			MetricName:     rule.MetricName,
			CurrentValue:   current,
			ThresholdValue: rule.ThresholdValue,
			Condition:      rule.Condition,
			Severity:       rule.Severity,
			Message:        message,
		})
	}
	return alerts
}

func conditionHolds(condition models.ThresholdCondition, current, threshold float64) bool {
	switch condition {
	case models.ConditionGreaterThan:
		return current > threshold
	case models.ConditionLessThan:
		return current < threshold
	case models.ConditionEquals:
		return current == threshold
	default:
		return false
	}
}
