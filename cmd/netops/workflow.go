package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/haimskira/net-ops-v3/internal/approval"
	"github.com/haimskira/net-ops-v3/internal/device"
	"github.com/haimskira/net-ops-v3/internal/model"
)

// Request, approve and reject subcommands for the object/rule workflow.
// Device writes go through a dry-run writer; the inventory updates are real.

func newRequestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "request",
		Short: "Queue a new object or rule request",
	}
	cmd.AddCommand(newRequestObjectCmd(), newRequestRuleCmd())
	return cmd
}

func newRequestObjectCmd() *cobra.Command {
	var req model.ObjectRequest
	cmd := &cobra.Command{
		Use:   "object",
		Short: "Queue an address, address-group, service or service-group request",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			approver := approval.New(store, device.DryRunWriter{})
			if err := approver.SubmitObjectRequest(cmd.Context(), &req); err != nil {
				return err
			}
			fmt.Printf("object request %d queued\n", req.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Name, "name", "", "Object name")
	cmd.Flags().StringVar(&req.ObjType, "type", "address", "Object type: address, address-group, service, service-group")
	cmd.Flags().StringVar(&req.Value, "value", "", "Object value (IP, CIDR, hostname, port list or member list)")
	cmd.Flags().StringVar(&req.Prefix, "prefix", "", "Network prefix length for address objects")
	cmd.Flags().StringVar(&req.Protocol, "protocol", "tcp", "Protocol for service objects")
	cmd.Flags().StringVar(&req.RequestedBy, "by", "", "Requesting user")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("value")
	return cmd
}

func newRequestRuleCmd() *cobra.Command {
	var req model.RuleRequest
	cmd := &cobra.Command{
		Use:   "rule",
		Short: "Queue a security rule request",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			approver := approval.New(store, device.DryRunWriter{})
			if err := approver.SubmitRuleRequest(cmd.Context(), &req); err != nil {
				return err
			}
			fmt.Printf("rule request %d queued\n", req.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.RuleName, "name", "", "Requested rule name")
	cmd.Flags().StringVar(&req.SourceIP, "src", "", "Source IP or object name")
	cmd.Flags().StringVar(&req.DestinationIP, "dst", "", "Destination IP or object name")
	cmd.Flags().StringVar(&req.ServicePort, "port", "", "Destination port or service name")
	cmd.Flags().StringVar(&req.Protocol, "protocol", "tcp", "Service protocol")
	cmd.Flags().StringVar(&req.FromZone, "from-zone", "", "Source zone")
	cmd.Flags().StringVar(&req.ToZone, "to-zone", "", "Destination zone")
	cmd.Flags().StringVar(&req.Application, "application", "any", "Application")
	cmd.Flags().StringVar(&req.Tag, "tag", "", "Infrastructure tag, e.g. 30-G for a 30 day expiry")
	cmd.Flags().StringVar(&req.GroupTag, "group-tag", "", "Rule group tag")
	cmd.Flags().IntVar(&req.DurationHours, "duration", 48, "Requested duration in hours")
	cmd.Flags().StringVar(&req.RequestedBy, "by", "", "Requesting user")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("src")
	cmd.MarkFlagRequired("dst")
	return cmd
}

func newApproveCmd() *cobra.Command {
	var admin string
	cmd := &cobra.Command{
		Use:   "approve {object|rule} <id>",
		Short: "Approve a pending request and update the inventory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRequestID(args[1])
			if err != nil {
				return err
			}
			store, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			approver := approval.New(store, device.DryRunWriter{})
			switch args[0] {
			case "object":
				err = approver.ApproveObject(cmd.Context(), id, admin)
			case "rule":
				err = approver.ApproveRule(cmd.Context(), id, admin)
			default:
				return fmt.Errorf("unknown request kind %q", args[0])
			}
			if err != nil {
				return err
			}
			fmt.Printf("%s request %d approved\n", args[0], id)
			return nil
		},
	}
	cmd.Flags().StringVar(&admin, "by", "", "Approving admin")
	cmd.MarkFlagRequired("by")
	return cmd
}

func newRejectCmd() *cobra.Command {
	var (
		admin  string
		reason string
	)
	cmd := &cobra.Command{
		Use:   "reject {object|rule} <id>",
		Short: "Reject a pending request with a reason",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRequestID(args[1])
			if err != nil {
				return err
			}
			store, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			approver := approval.New(store, device.DryRunWriter{})
			switch args[0] {
			case "object":
				err = approver.RejectObject(cmd.Context(), id, admin, reason)
			case "rule":
				err = approver.RejectRule(cmd.Context(), id, admin, reason)
			default:
				return fmt.Errorf("unknown request kind %q", args[0])
			}
			if err != nil {
				return err
			}
			fmt.Printf("%s request %d rejected\n", args[0], id)
			return nil
		},
	}
	cmd.Flags().StringVar(&admin, "by", "", "Rejecting admin")
	cmd.Flags().StringVar(&reason, "reason", "", "Rejection reason")
	cmd.MarkFlagRequired("by")
	return cmd
}

func parseRequestID(arg string) (uint, error) {
	n, err := strconv.ParseUint(arg, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid request id %q", arg)
	}
	return uint(n), nil
}
