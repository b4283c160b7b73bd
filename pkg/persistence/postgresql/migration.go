package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE workflows (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				owner_id VARCHAR(255) NOT NULL,
				status VARCHAR(50) NOT NULL CHECK (status IN ('draft', 'active', 'paused', 'archived')),
				trigger_kind VARCHAR(50) NOT NULL,
				trigger_config JSONB,
				max_retries INT NOT NULL DEFAULT 0,
				timeout_seconds INT NOT NULL DEFAULT 0,
				version INT NOT NULL DEFAULT 1,
				nodes JSONB NOT NULL DEFAULT '[]',
				variables JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				last_executed_at TIMESTAMP WITH TIME ZONE,
				execution_count INT NOT NULL DEFAULT 0
			);

			CREATE INDEX idx_workflows_status ON workflows(status);
			CREATE INDEX idx_workflows_owner_id ON workflows(owner_id);
			CREATE INDEX idx_workflows_created_at ON workflows(created_at);
		`,
		2: `
			CREATE TABLE workflow_executions (
				id VARCHAR(255) PRIMARY KEY,
				workflow_id VARCHAR(255) NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
				workflow_version INT NOT NULL,
				status VARCHAR(50) NOT NULL,
				triggered_by VARCHAR(50) NOT NULL,
				trigger_details JSONB,
				input_data JSONB,
				output_data JSONB,
				node_executions JSONB NOT NULL DEFAULT '{}',
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				completed_at TIMESTAMP WITH TIME ZONE,
				total_duration_ms BIGINT NOT NULL DEFAULT 0,
				error_message TEXT NOT NULL DEFAULT ''
			);

			CREATE INDEX idx_workflow_executions_workflow_id ON workflow_executions(workflow_id);
			CREATE INDEX idx_workflow_executions_status ON workflow_executions(status);
			CREATE INDEX idx_workflow_executions_started_at ON workflow_executions(started_at);

			-- At most one running execution per workflow, enforced by the
			-- database itself so concurrent claims cannot both succeed.
			CREATE UNIQUE INDEX idx_workflow_executions_single_flight
				ON workflow_executions(workflow_id)
				WHERE status = 'running';
		`,
		3: `
			CREATE TABLE workflow_schedules (
				id VARCHAR(255) PRIMARY KEY,
				workflow_id VARCHAR(255) NOT NULL UNIQUE REFERENCES workflows(id) ON DELETE CASCADE,
				cron_expression VARCHAR(255) NOT NULL,
				next_due_at TIMESTAMP WITH TIME ZONE NOT NULL,
				active BOOLEAN NOT NULL DEFAULT TRUE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflow_schedules_due ON workflow_schedules(next_due_at) WHERE active;
		`,
	}
}
