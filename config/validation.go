package config

import (
	"fmt"
)

type validateFn func() error

func run(validations ...validateFn) error {
	for _, fn := range validations {
		if err := fn(); err != nil {
			return err
		}
	}
	return nil
}

func notEmpty[T comparable](field string, v T) validateFn {
	return func() error {
		var z T
		if v == z {
			return fmt.Errorf("field %q is required", field)
		}
		return nil
	}
}

func anyOf(field string, vs ...string) validateFn {
	return func() error {
		for _, v := range vs {
			if v != "" {
				return nil
			}
		}
		return fmt.Errorf("at least one of %q is required", field)
	}
}
