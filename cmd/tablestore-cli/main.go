// Command tablestore-cli is a small operational client for exercising a
// TableStore-compatible endpoint end to end: create a table, put a row,
// read it back, and clean up.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/aliyun/tablestore-go/tablestore"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	endpoint        string
	instanceName    string
	accessKeyID     string
	accessKeySecret string
	tableName       string
)

func main() {
	root := &cobra.Command{
		Use:   "tablestore-cli",
		Short: "Exercise a TableStore endpoint from the command line",
	}

	flags := pflag.NewFlagSet("common", pflag.ExitOnError)
	flags.StringVar(&endpoint, "endpoint", "", "endpoint, e.g. https://instance.region.ots.aliyuncs.com")
	flags.StringVar(&instanceName, "instance", "", "instance name")
	flags.StringVar(&accessKeyID, "access-key-id", "", "access key id")
	flags.StringVar(&accessKeySecret, "access-key-secret", "", "access key secret")
	flags.StringVar(&tableName, "table", "cli_demo", "table name to operate on")
	root.PersistentFlags().AddFlagSet(flags)

	root.AddCommand(newCreateTableCmd())
	root.AddCommand(newPutGetCmd())
	root.AddCommand(newDeleteTableCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newClient() (*tablestore.Client, error) {
	cfg := tablestore.DefaultConfig()
	cfg.Endpoint = endpoint
	cfg.InstanceName = instanceName
	cfg.AccessKeyID = accessKeyID
	cfg.AccessKeySecret = accessKeySecret
	return tablestore.NewClient(cfg)
}

func newCreateTableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create-table",
		Short: "Create the demo table with a single string primary key",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			defer c.Close()

			meta := tablestore.TableMeta{
				TableName: tableName,
				Schema: []tablestore.PrimaryKeySchema{
					{Name: "pkey", Type: tablestore.PKColumnTypeString},
				},
			}
			throughput := tablestore.ReservedThroughput{Read: 0, Write: 0}

			done := make(chan error, 1)
			c.CreateTable(meta, throughput, tablestore.TableOptions{}, func(err error) { done <- err })
			if err := <-done; err != nil {
				return err
			}
			fmt.Printf("created table %q\n", tableName)
			return nil
		},
	}
}

func newDeleteTableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-table",
		Short: "Delete the demo table",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			defer c.Close()

			done := make(chan error, 1)
			c.DeleteTable(tableName, func(err error) { done <- err })
			if err := <-done; err != nil {
				return err
			}
			fmt.Printf("deleted table %q\n", tableName)
			return nil
		},
	}
}

func newPutGetCmd() *cobra.Command {
	var key, value string
	cmd := &cobra.Command{
		Use:   "put-get",
		Short: "Put one row then read it back",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			defer c.Close()

			now := time.Now().UnixMilli()
			put := &tablestore.RowPutChange{
				Table:      tableName,
				PrimaryKey: tablestore.PrimaryKey{{Name: "pkey", Value: tablestore.NewPKString(key)}},
				Attributes: []tablestore.Attribute{
					{Name: "value", Value: tablestore.NewAVString(value), Timestamp: &now},
				},
			}

			putDone := make(chan error, 1)
			c.PutRow(put, func(_ *tablestore.PrimaryKey, _ tablestore.ConsumedCapacity, err error) { putDone <- err })
			if err := <-putDone; err != nil {
				return err
			}

			pk := tablestore.PrimaryKey{{Name: "pkey", Value: tablestore.NewPKString(key)}}
			type getResult struct {
				row *tablestore.Row
				err error
			}
			getDone := make(chan getResult, 1)
			c.GetRow(tableName, pk, nil, func(row *tablestore.Row, _ tablestore.ConsumedCapacity, err error) {
				getDone <- getResult{row, err}
			})
			res := <-getDone
			if res.err != nil {
				return res.err
			}
			if res.row == nil {
				fmt.Println("row not found")
				return nil
			}
			for _, a := range res.row.Attributes {
				fmt.Printf("%s = %v\n", a.Name, a.Value)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&key, "key", "demo", "primary key value")
	cmd.Flags().StringVar(&value, "value", "hello", "attribute value to write")
	return cmd
}
