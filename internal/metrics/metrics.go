// Package metrics exposes the last device snapshot as prometheus gauges.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/s21tools/gos21/s21"
)

var (
	power = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "s21_power_on", Help: "Power state (1 = on)"})
	boost = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "s21_boost_active", Help: "Boost mode active (1 = active)"})
	hvacMode = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "s21_hvac_mode", Help: "Selected HVAC mode (1 = active)"}, []string{"mode"})
	hvacAction = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "s21_hvac_action", Help: "Current HVAC action (1 = active)"}, []string{"action"})
	targetTemp = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "s21_target_temperature_celsius", Help: "Target temperature (°C)"})
	supplyTemp = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "s21_supply_temperature_celsius", Help: "Supply air temperature (°C)"})
	intakeTemp = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "s21_intake_temperature_celsius", Help: "Intake air temperature (°C)"})
	humidity = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "s21_humidity_percent", Help: "Indoor relative humidity (%)"})
	fanLevel = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "s21_fan_level", Help: "Fan level (255 = manual)"})
	manualSpeed = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "s21_manual_fan_speed_percent", Help: "Manual fan speed (%)"})
	filterAlarm = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "s21_filter_alarm", Help: "Filter maintenance requested (1 = yes)"})
	alarmState = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "s21_alarm_state", Help: "Raw alarm state register"})

	pollsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "s21_polls_total", Help: "Completed polls"})
	pollErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "s21_poll_errors_total", Help: "Failed polls"})
)

// Register registers all bridge metrics with the default registry.
func Register() {
	prometheus.MustRegister(
		power, boost, hvacMode, hvacAction,
		targetTemp, supplyTemp, intakeTemp, humidity,
		fanLevel, manualSpeed, filterAlarm, alarmState,
		pollsTotal, pollErrors,
	)
}

// Update reflects one snapshot into the gauges.
func Update(st *s21.DeviceState) {
	power.Set(boolGauge(st.Power))
	boost.Set(boolGauge(st.Boost))
	for _, m := range s21.HVACModes {
		hvacMode.WithLabelValues(string(m)).Set(boolGauge(m == st.HVACMode))
	}
	action := st.HVACAction()
	for _, a := range s21.HVACActions {
		hvacAction.WithLabelValues(string(a)).Set(boolGauge(a == action))
	}
	targetTemp.Set(float64(st.TargetTemperature))
	supplyTemp.Set(st.CurrentTemperature)
	intakeTemp.Set(st.IntakeTemperature)
	humidity.Set(float64(st.Humidity))
	fanLevel.Set(float64(st.FanMode))
	manualSpeed.Set(float64(st.FanSpeedPercent))
	filterAlarm.Set(boolGauge(st.FilterAlarm()))
	alarmState.Set(float64(st.AlarmState))
	pollsTotal.Inc()
}

// PollFailed counts a failed poll.
func PollFailed() { pollErrors.Inc() }

func boolGauge(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
