package evo

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	generationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "genelab",
		Name:      "generations_total",
		Help:      "Generational replacement steps completed.",
	})

	fitnessEvaluations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "genelab",
		Name:      "fitness_evaluations_total",
		Help:      "Calls made to fitness functions by monitored runs.",
	})

	climbSteps = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "genelab",
		Name:      "hill_climb_steps",
		Help:      "Steps taken by each (1+lambda) hill climb.",
		Buckets:   []float64{1, 2, 5, 10, 20, 50, 100, 200},
	})

	searchExhausted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "genelab",
		Name:      "search_exhausted_total",
		Help:      "Recombinations aborted because only identical parents were found.",
	})

	// Unlabelled: run ids are unbounded, the current run is in the logs.
	bestFitness = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "genelab",
		Name:      "best_fitness",
		Help:      "Best fitness of the most recently recorded generation.",
	})
)
