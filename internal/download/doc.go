// Package download provides the sync orchestration logic for fetching a
// photo catalog into a local directory.
//
// # Manager
//
// The Manager coordinates the entire sync:
//
//  1. List geotagged and other items from the catalog
//  2. Drop items that are not public (optional)
//  3. Normalize every item into a record and assign file names
//  4. Skip items already on disk or in the ledger
//  5. Download, tag and record the rest, one at a time
//  6. Flush the ledger and notify
//
// # Basic Usage
//
//	manager := download.NewManager(download.ManagerConfig{
//	    Catalog:            client,
//	    Fetcher:            http.NewClient(settings.DownloadTimeout, "snarf/1.0"),
//	    Tagger:             applier,
//	    Ledger:             led,
//	    OutputDir:          settings.OutputDir,
//	    PublicOnly:         true,
//	    TrustExistingFiles: true,
//	    OnProgress: func(event download.ProgressEvent) {
//	        fmt.Println(event.Message)
//	    },
//	})
//
//	summary, err := manager.Run(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Failure Policy
//
// Catalog, authentication and ledger errors end the run. A failed download
// or tag write is reported and recorded in the Summary; the item is not
// added to the ledger and is retried by the next run.
//
// # Progress Tracking
//
// Progress is reported via callbacks:
//
//	type ProgressEvent struct {
//	    Message string
//	    Level   ProgressLevel // Info, Verbose, Warning, Error, Success
//	    ItemID  string
//	}
//
// TransferEvent carries the byte counts of the current download, and
// GetProgress returns a snapshot that may be read from another goroutine.
package download
