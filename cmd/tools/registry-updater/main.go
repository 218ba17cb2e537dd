// cmd/tools/registry-updater/main.go
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"visa-workers/pkg/registry"
)

const defaultRegistryPath = "configs/activity-registry.json"

func main() {
	if len(os.Args) < 2 {
		help(os.Stderr)
		os.Exit(1)
	}
	if err := run(os.Args[1], os.Args[2:], os.Stdout, time.Now().UTC()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(command string, args []string, out io.Writer, now time.Time) error {
	switch command {
	case "add":
		return runAdd(args, out, now)
	case "update":
		return runUpdate(args, out, now)
	case "validate":
		return runValidate(args, out)
	case "check-input":
		return runCheckInput(args, out)
	case "help", "-h", "--help":
		help(out)
		return nil
	default:
		help(out)
		return fmt.Errorf("unknown command %q", command)
	}
}

func runAdd(args []string, out io.Writer, now time.Time) error {
	fsAdd := flag.NewFlagSet("add", flag.ContinueOnError)
	path := fsAdd.String("path", defaultRegistryPath, "Path to registry file")
	id := fsAdd.String("id", "", "Activity ID (e.g., resolve-next-step)")
	displayName := fsAdd.String("displayName", "", "Display Name (e.g., Resolve Next Step)")
	description := fsAdd.String("description", "", "Description")
	category := fsAdd.String("category", "", "Category (e.g., guidance)")
	taskType := fsAdd.String("taskType", "", "Camunda Task Type (defaults to id)")
	version := fsAdd.String("version", "1.0.0", "Version")
	status := fsAdd.String("status", registry.StatusPlanned, "Implementation Status (planned, in-progress, completed, verified)")
	if err := fsAdd.Parse(args); err != nil {
		return err
	}
	if *id == "" || *displayName == "" || *category == "" {
		return fmt.Errorf("id, displayName and category are required for add")
	}
	if *taskType == "" {
		*taskType = *id
	}

	reg, err := registry.LoadRegistry(*path)
	if errors.Is(err, fs.ErrNotExist) {
		reg = &registry.ActivityRegistry{Version: "1.0.0"}
	} else if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	err = reg.Add(registry.Activity{
		ID:                   *id,
		DisplayName:          *displayName,
		Description:          *description,
		Category:             *category,
		Version:              *version,
		TaskType:             *taskType,
		ImplementationStatus: *status,
		Timeout:              "10s",
	}, now)
	if err != nil {
		return err
	}
	if err := reg.Save(*path); err != nil {
		return err
	}
	fmt.Fprintf(out, "Added activity: %s\n", *id)
	return nil
}

func runUpdate(args []string, out io.Writer, now time.Time) error {
	fsUpdate := flag.NewFlagSet("update", flag.ContinueOnError)
	path := fsUpdate.String("path", defaultRegistryPath, "Path to registry file")
	id := fsUpdate.String("id", "", "Activity ID to update")
	field := fsUpdate.String("field", "", "Field to update (status, version, description, timeout, retries)")
	value := fsUpdate.String("value", "", "New value for the field")
	if err := fsUpdate.Parse(args); err != nil {
		return err
	}
	if *id == "" || *field == "" || *value == "" {
		return fmt.Errorf("id, field and value are required for update")
	}

	reg, err := registry.LoadRegistry(*path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	if err := reg.Update(*id, *field, *value, now); err != nil {
		return err
	}
	if err := reg.Save(*path); err != nil {
		return err
	}
	fmt.Fprintf(out, "Updated activity %s, field %s to %s\n", *id, *field, *value)
	return nil
}

func runValidate(args []string, out io.Writer) error {
	fsValidate := flag.NewFlagSet("validate", flag.ContinueOnError)
	path := fsValidate.String("path", defaultRegistryPath, "Path to registry file")
	if err := fsValidate.Parse(args); err != nil {
		return err
	}

	reg, err := registry.LoadRegistry(*path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	if err := reg.Validate(); err != nil {
		return fmt.Errorf("registry validation failed: %w", err)
	}
	fmt.Fprintf(out, "Registry validation passed (%d activities).\n", len(reg.Activities))
	return nil
}

// runCheckInput validates a JSON file of job variables against an activity's
// input schema, so process designers can test variable mappings offline.
func runCheckInput(args []string, out io.Writer) error {
	fsCheck := flag.NewFlagSet("check-input", flag.ContinueOnError)
	path := fsCheck.String("path", defaultRegistryPath, "Path to registry file")
	taskType := fsCheck.String("taskType", "", "Task type whose input schema is used")
	file := fsCheck.String("file", "", "JSON file with the job variables")
	if err := fsCheck.Parse(args); err != nil {
		return err
	}
	if *taskType == "" || *file == "" {
		return fmt.Errorf("taskType and file are required for check-input")
	}

	reg, err := registry.LoadRegistry(*path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	activity, ok := reg.Find(*taskType)
	if !ok {
		return fmt.Errorf("no activity serves task type %s", *taskType)
	}
	schema, hasSchema, err := activity.CompileInputSchema()
	if err != nil {
		return err
	}
	if !hasSchema {
		return fmt.Errorf("activity %s declares no input schema", activity.ID)
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		return err
	}
	var variables interface{}
	if err := json.Unmarshal(data, &variables); err != nil {
		return fmt.Errorf("parse %s: %w", *file, err)
	}

	problems, err := registry.ValidateDocument(schema, variables)
	if err != nil {
		return err
	}
	if len(problems) > 0 {
		for _, p := range problems {
			fmt.Fprintf(out, "  - %s\n", p)
		}
		return fmt.Errorf("%d problem(s) in %s", len(problems), *file)
	}
	fmt.Fprintf(out, "%s matches the %s input schema.\n", *file, *taskType)
	return nil
}

func help(out io.Writer) {
	fmt.Fprintln(out, "Usage: registry-updater <command> [options]")
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  add          Add a new activity")
	fmt.Fprintln(out, "  update       Update an activity field")
	fmt.Fprintln(out, "  validate     Validate the registry and its schemas")
	fmt.Fprintln(out, "  check-input  Validate job variables against an activity input schema")
}
