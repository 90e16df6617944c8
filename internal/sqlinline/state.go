package sqlinline

const QCreateStateTable = `--sql 1c6b2f0e-4d8a-4e3b-9f27-5a0d3c8e7b41
create table if not exists pixelforge_state (
    key text primary key,
    value text not null,
    updated_at timestamp not null default current_timestamp
);
`

const QSelectState = `--sql 8a8e0d52-7f5d-4f21-8b7d-f7d4b821eed7
select value
from pixelforge_state
where key = ?
limit 1;
`

const QUpsertState = `--sql 6d4f5660-0f7c-4f73-a1f3-9ab6d5e6c7a3
insert into pixelforge_state (key, value, updated_at)
values (?, ?, current_timestamp)
on conflict (key) do update set
    value = excluded.value,
    updated_at = current_timestamp;
`
