package printer

import "strings"

// File transfer on top of the command transport. Every sequence holds ioMu
// end to end so no poll cycle interleaves with a multi-step operation.

// ListFiles queries the device storage listing (M20) and scrapes filename
// candidates out of the free-text reply. An empty list is normal: printers
// that keep jobs on internal storage do not expose directory contents here.
func (c *Client) ListFiles() []FileEntry {
	c.ioMu.Lock()
	defer c.ioMu.Unlock()
	resp, err := c.exchange(cmdListFiles)
	if err != nil {
		c.log.Warnw("printer_list_files_failed", "err", err)
		return nil
	}
	files := parseFileList(resp)
	if len(files) == 0 {
		c.log.Infow("printer_list_files_empty", "note", "internal-storage firmware may not support M20")
	}
	return files
}

// UploadFile streams a G-code file to the device storage: begin-write (M28),
// the content line by line with full-line comments skipped, end-write (M29).
// Only the begin and end commands are acknowledgment-gated; content lines are
// streamed without per-line ack checks, so a corrupted mid-stream line goes
// unreported. TODO: sample line acks once the firmware's per-line reply
// behaviour is confirmed on real hardware.
func (c *Client) UploadFile(filename string, content []byte) bool {
	c.ioMu.Lock()
	defer c.ioMu.Unlock()

	resp, err := c.exchange(cmdBeginWrite + " " + filename)
	if err != nil || !isAck(resp) {
		c.log.Warnw("printer_upload_begin_failed", "file", filename, "err", err)
		return false
	}

	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}
		if _, err := c.exchangeRaw(line); err != nil {
			c.log.Warnw("printer_upload_stream_failed", "file", filename, "err", err)
			return false
		}
	}

	resp, err = c.exchange(cmdEndWrite)
	if err != nil || !isAck(resp) {
		c.log.Warnw("printer_upload_end_failed", "file", filename, "err", err)
		return false
	}
	c.log.Infow("printer_upload_complete", "file", filename, "bytes", len(content))
	return true
}

// StartPrint selects a stored file (M23) and starts it (M24). The two steps
// are independently gated but not atomic: when select succeeds and start
// fails, the device keeps the selection, so a naive retry re-selects. Known
// quirk of the protocol, surfaced to the caller only as failure.
func (c *Client) StartPrint(filename string) bool {
	c.ioMu.Lock()
	defer c.ioMu.Unlock()

	resp, err := c.exchange(cmdSelectFile + " " + filename)
	if err != nil || !isAck(resp) {
		c.log.Warnw("printer_select_file_failed", "file", filename, "err", err)
		return false
	}
	resp, err = c.exchange(cmdStartPrint)
	if err != nil || !isAck(resp) {
		c.log.Warnw("printer_start_print_failed", "file", filename, "err", err)
		return false
	}
	c.log.Infow("printer_print_started", "file", filename)
	return true
}

// DeleteFile removes a stored file (M30).
func (c *Client) DeleteFile(filename string) bool {
	if !c.sendAcked(cmdDeleteFile + " " + filename) {
		c.log.Warnw("printer_delete_file_failed", "file", filename)
		return false
	}
	c.log.Infow("printer_file_deleted", "file", filename)
	return true
}
