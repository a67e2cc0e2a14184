package device

import "log/slog"

// DryRunWriter records every would-be device call in the log and reports
// success. It stands in where no live device transport is configured, so the
// approval workflow can still run end to end against the local inventory.
type DryRunWriter struct{}

func (DryRunWriter) CreateAddress(name, value string) error {
	slog.Info("device write skipped (dry-run)", "op", "create-address", "name", name, "value", value)
	return nil
}

func (DryRunWriter) CreateAddressGroup(name string, members []string) error {
	slog.Info("device write skipped (dry-run)", "op", "create-address-group", "name", name, "members", members)
	return nil
}

func (DryRunWriter) CreateService(name, protocol, port string) error {
	slog.Info("device write skipped (dry-run)", "op", "create-service", "name", name, "protocol", protocol, "port", port)
	return nil
}

func (DryRunWriter) CreateServiceGroup(name string, members []string) error {
	slog.Info("device write skipped (dry-run)", "op", "create-service-group", "name", name, "members", members)
	return nil
}

func (DryRunWriter) CreateRule(rule RuleSpec) error {
	slog.Info("device write skipped (dry-run)", "op", "create-rule", "name", rule.Name)
	return nil
}
